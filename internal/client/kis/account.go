package kis

import (
	"context"
	"net/url"
	"time"
)

const (
	balancePath    = "/uapi/overseas-stock/v1/trading/inquire-balance"
	executionsPath = "/uapi/overseas-stock/v1/trading/inquire-ccnl"
	marginPath     = "/uapi/overseas-stock/v1/trading/foreign-margin"

	trBalanceReal       = "TTTS3012R"
	trBalanceSandbox    = "VTTS3012R"
	trExecutionsReal    = "TTTS3035R"
	trExecutionsSandbox = "VTTS3035R"
	// Foreign margin has no sandbox variant.
	trMargin = "TTTC2101R"
)

type AccountParams struct {
	CANO       string
	AcntPrdtCd string
	ExchangeCd string
	CurrencyCd string
}

// InquireBalance returns the held instruments and summary amounts
// (v1 overseas-stock balance inquiry).
func (c *Client) InquireBalance(ctx context.Context, acct AccountParams) (*Balance, error) {
	trID := trBalanceReal
	if c.sandbox {
		trID = trBalanceSandbox
	}
	query := url.Values{}
	query.Set("CANO", acct.CANO)
	query.Set("ACNT_PRDT_CD", acct.AcntPrdtCd)
	query.Set("OVRS_EXCG_CD", acct.ExchangeCd)
	query.Set("TR_CRCY_CD", acct.CurrencyCd)
	query.Set("CTX_AREA_FK200", "")
	query.Set("CTX_AREA_NK200", "")

	raw, err := c.doGet(ctx, balancePath, trID, query)
	if err != nil {
		return nil, err
	}
	var resp balanceResponse
	if err := unwrap(raw, &resp); err != nil {
		return nil, err
	}

	bal := &Balance{
		TotalBuyAmount:  parseAmount(resp.Output2.FrcrBuyAmtSmtl1),
		RealizedProfit:  parseDecimal(resp.Output2.OvrsRlztPflsAmt),
		TotalEvalProfit: parseDecimal(resp.Output2.TotEvluPflsAmt),
	}
	for _, item := range resp.Output1 {
		qty := parseInt(item.CblcQty)
		if qty <= 0 {
			continue
		}
		bal.Positions = append(bal.Positions, BalancePosition{
			Code:        item.Pdno,
			Qty:         qty,
			MarketValue: parseAmount(item.StckEvluAmt),
		})
	}
	return bal, nil
}

type ExecutionsFilter struct {
	Code     string // "%" for all
	Start    time.Time
	End      time.Time
	SideCode string // SideCodeAll / SideCodeSell / SideCodeBuy
	// "01" restricts to filled reports; "00" includes unfilled.
	FilledCode string
}

// InquireExecutions lists execution reports for the date range
// (v1 overseas-stock order/execution inquiry), following continuation
// keys until the gateway returns no further page.
func (c *Client) InquireExecutions(ctx context.Context, acct AccountParams, filter ExecutionsFilter) ([]ExecutionRecord, error) {
	trID := trExecutionsReal
	if c.sandbox {
		trID = trExecutionsSandbox
	}
	code := filter.Code
	if code == "" {
		code = "%"
	}
	filled := filter.FilledCode
	if filled == "" {
		filled = "01"
	}
	side := filter.SideCode
	if side == "" {
		side = SideCodeAll
	}

	var records []ExecutionRecord
	fk, nk := "", ""
	for {
		query := url.Values{}
		query.Set("CANO", acct.CANO)
		query.Set("ACNT_PRDT_CD", acct.AcntPrdtCd)
		query.Set("PDNO", code)
		query.Set("ORD_STRT_DT", filter.Start.Format("20060102"))
		query.Set("ORD_END_DT", filter.End.Format("20060102"))
		query.Set("SLL_BUY_DVSN", side)
		query.Set("CCLD_NCCS_DVSN", filled)
		query.Set("OVRS_EXCG_CD", acct.ExchangeCd)
		query.Set("SORT_SQN", "DS")
		query.Set("ORD_DT", "")
		query.Set("ORD_GNO_BRNO", "")
		query.Set("ODNO", "")
		query.Set("CTX_AREA_FK200", fk)
		query.Set("CTX_AREA_NK200", nk)

		raw, err := c.doGet(ctx, executionsPath, trID, query)
		if err != nil {
			return nil, err
		}
		var resp executionsResponse
		if err := unwrap(raw, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Output {
			records = append(records, ExecutionRecord{
				OrderNo:      item.Odno,
				OrigOrderNo:  item.OrgnOdno,
				SideCode:     item.SllBuyDvsnCd,
				Code:         item.Pdno,
				Name:         item.PrdtName,
				FillQty:      parseInt(item.FtCcldQty),
				FillPrice:    parseAmount(item.FtCcldUnpr3),
				RemainQty:    parseInt(item.NccsQty),
				RejectReason: item.RjctRson,
			})
		}
		if resp.CtxAreaNk200 == "" || len(resp.Output) == 0 {
			return records, nil
		}
		fk, nk = resp.CtxAreaFk200, resp.CtxAreaNk200
	}
}

// GetForeignMargin returns the per-currency orderable cash rows
// (v1 overseas-stock foreign-margin inquiry).
func (c *Client) GetForeignMargin(ctx context.Context, acct AccountParams) ([]MarginEntry, error) {
	query := url.Values{}
	query.Set("CANO", acct.CANO)
	query.Set("ACNT_PRDT_CD", acct.AcntPrdtCd)

	raw, err := c.doGet(ctx, marginPath, trMargin, query)
	if err != nil {
		return nil, err
	}
	var resp marginResponse
	if err := unwrap(raw, &resp); err != nil {
		return nil, err
	}
	entries := make([]MarginEntry, 0, len(resp.Output))
	for _, item := range resp.Output {
		entries = append(entries, MarginEntry{
			Currency:      item.CrcyCd,
			OrderableCash: parseAmount(item.FrcrGnrlOrdPsblAmt),
		})
	}
	return entries, nil
}

// OrderableCash picks the orderable amount for one currency, 0 when the
// currency is absent from the margin response.
func OrderableCash(entries []MarginEntry, currency string) int64 {
	for _, e := range entries {
		if e.Currency == currency {
			return e.OrderableCash
		}
	}
	return 0
}
