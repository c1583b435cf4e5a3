package kis

import (
	"context"
	"fmt"
	"strconv"
)

const orderPath = "/uapi/overseas-stock/v1/trading/order"

// US-equity order TR ids. Sandbox ("mock") sell uses a different id than
// production sell.
const (
	trOrderBuyReal     = "TTTT1002U"
	trOrderSellReal    = "TTTT1006U"
	trOrderBuySandbox  = "VTTT1002U"
	trOrderSellSandbox = "VTTT1001U"
)

type SubmitOrderRequest struct {
	CANO       string
	AcntPrdtCd string
	ExchangeCd string
	Code       string
	IsBuy      bool
	Qty        int64
	Price      int64
}

type orderRequestBody struct {
	CANO         string `json:"CANO"`
	AcntPrdtCd   string `json:"ACNT_PRDT_CD"`
	OvrsExcgCd   string `json:"OVRS_EXCG_CD"`
	Pdno         string `json:"PDNO"`
	OrdQty       string `json:"ORD_QTY"`
	OvrsOrdUnpr  string `json:"OVRS_ORD_UNPR"`
	OrdSvrDvsnCd string `json:"ORD_SVR_DVSN_CD"`
	OrdDvsn      string `json:"ORD_DVSN"`
}

// SubmitOrder places a limit order and returns the broker's
// acknowledgement. A non-success business code comes back as *APIError;
// no ledger writes happen here.
func (c *Client) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*OrderAck, error) {
	if req.Code == "" {
		return nil, fmt.Errorf("kis: instrument code is required")
	}
	if req.Qty <= 0 {
		return nil, fmt.Errorf("kis: order quantity must be positive")
	}

	trID := c.orderTrID(req.IsBuy)
	body := orderRequestBody{
		CANO:         req.CANO,
		AcntPrdtCd:   req.AcntPrdtCd,
		OvrsExcgCd:   req.ExchangeCd,
		Pdno:         req.Code,
		OrdQty:       strconv.FormatInt(req.Qty, 10),
		OvrsOrdUnpr:  strconv.FormatInt(req.Price, 10),
		OrdSvrDvsnCd: "0",
		OrdDvsn:      "00", // limit
	}

	raw, err := c.doPost(ctx, orderPath, trID, body)
	if err != nil {
		return nil, err
	}
	var resp orderResponse
	if err := unwrap(raw, &resp); err != nil {
		return nil, err
	}
	return &OrderAck{
		OrderNo:   resp.Output.Odno,
		OrderTime: resp.Output.OrdTmd,
		Raw:       raw,
	}, nil
}

func (c *Client) orderTrID(isBuy bool) string {
	if c.sandbox {
		if isBuy {
			return trOrderBuySandbox
		}
		return trOrderSellSandbox
	}
	if isBuy {
		return trOrderBuyReal
	}
	return trOrderSellReal
}
