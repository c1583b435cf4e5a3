package kis

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// envelope is the common KIS response header: rt_cd "0" means success,
// msg_cd/msg1 carry the business code and message.
type envelope struct {
	RtCd  string `json:"rt_cd"`
	MsgCd string `json:"msg_cd"`
	Msg1  string `json:"msg1"`
}

// Side division codes used by the execution inquiry (sll_buy_dvsn_cd).
// "00" is the aggregate code the API accepts as a query filter; it should
// never appear on a single report, and the reconciler treats it as a no-op.
const (
	SideCodeAll  = "00"
	SideCodeSell = "01"
	SideCodeBuy  = "02"
)

// ExecutionRecord is one broker-confirmed fill from the execution inquiry.
type ExecutionRecord struct {
	OrderNo      string
	OrigOrderNo  string
	SideCode     string
	Code         string
	Name         string
	FillQty      int64
	FillPrice    int64
	RemainQty    int64
	RejectReason string
}

// BalancePosition is one held instrument from the balance inquiry.
type BalancePosition struct {
	Code        string
	Qty         int64
	MarketValue int64
}

// Balance is the account snapshot: held instruments plus the summary
// amounts needed to estimate available cash.
type Balance struct {
	Positions       []BalancePosition
	TotalBuyAmount  int64 // frcr_buy_amt_smtl1
	RealizedProfit  decimal.Decimal
	TotalEvalProfit decimal.Decimal
}

// CashEstimate derives an available-cash figure from the balance inquiry,
// which has no direct cash field: total buy amount minus the summed market
// value of held instruments, clamped at zero. The foreign-margin inquiry
// is the authoritative source when it is available.
func (b Balance) CashEstimate() int64 {
	var held int64
	for _, p := range b.Positions {
		held += p.MarketValue
	}
	cash := b.TotalBuyAmount - held
	if cash < 0 {
		return 0
	}
	return cash
}

type Quote struct {
	Code string
	Last int64
}

// MarginEntry is one currency row from the foreign-margin inquiry.
type MarginEntry struct {
	Currency      string
	OrderableCash int64 // frcr_gnrl_ord_psbl_amt
}

// OrderAck is the broker's acknowledgement of a submitted order.
type OrderAck struct {
	OrderNo   string
	OrderTime string
	Raw       []byte
}

// --- wire types -------------------------------------------------------------

type balanceResponse struct {
	envelope
	Output1 []balanceOutput1 `json:"output1"`
	Output2 balanceOutput2   `json:"output2"`
}

type balanceOutput1 struct {
	Pdno        string `json:"ovrs_pdno"`
	CblcQty     string `json:"ovrs_cblc_qty"`
	StckEvluAmt string `json:"ovrs_stck_evlu_amt"`
}

type balanceOutput2 struct {
	FrcrBuyAmtSmtl1 string `json:"frcr_buy_amt_smtl1"`
	OvrsRlztPflsAmt string `json:"ovrs_rlzt_pfls_amt"`
	TotEvluPflsAmt  string `json:"tot_evlu_pfls_amt"`
}

type executionsResponse struct {
	envelope
	CtxAreaFk200 string            `json:"ctx_area_fk200"`
	CtxAreaNk200 string            `json:"ctx_area_nk200"`
	Output       []executionOutput `json:"output"`
}

type executionOutput struct {
	Odno         string `json:"odno"`
	OrgnOdno     string `json:"orgn_odno"`
	SllBuyDvsnCd string `json:"sll_buy_dvsn_cd"`
	Pdno         string `json:"pdno"`
	PrdtName     string `json:"prdt_name"`
	FtCcldQty    string `json:"ft_ccld_qty"`
	FtCcldUnpr3  string `json:"ft_ccld_unpr3"`
	NccsQty      string `json:"nccs_qty"`
	RjctRson     string `json:"rjct_rson"`
}

type priceResponse struct {
	envelope
	Output priceOutput `json:"output"`
}

type priceOutput struct {
	Rsym string `json:"rsym"`
	Last string `json:"last"`
}

type marginResponse struct {
	envelope
	Output []marginOutput `json:"output"`
}

type marginOutput struct {
	CrcyCd             string `json:"crcy_cd"`
	FrcrGnrlOrdPsblAmt string `json:"frcr_gnrl_ord_psbl_amt"`
}

type orderResponse struct {
	envelope
	Output orderOutput `json:"output"`
}

type orderOutput struct {
	Odno   string `json:"ODNO"`
	OrdTmd string `json:"ORD_TMD"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Msg1        string `json:"msg1"`
}

// KIS returns every amount as a decimal string. Quantities and prices in
// the account's base currency truncate toward zero, never round.
func parseAmount(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.Truncate(0).IntPart()
}

func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return parseAmount(s)
	}
	return n
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
