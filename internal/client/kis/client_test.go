package kis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// newTestClient wires a client against a stub gateway. The stub always
// answers the token endpoint; everything else goes to handle.
func newTestClient(t *testing.T, sandbox bool, handle http.HandlerFunc) (*Client, *httptest.Server, *int64) {
	t.Helper()
	var tokenIssues int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == tokenPath {
			atomic.AddInt64(&tokenIssues, 1)
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok-1",
				"token_type":   "Bearer",
				"expires_in":   86400,
			})
			return
		}
		handle(w, r)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.Client(), Options{
		Host:            srv.URL,
		AppKey:          "key",
		AppSecret:       "secret",
		Sandbox:         sandbox,
		RateLimitPerSec: 1000,
	})
	return c, srv, &tokenIssues
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	c, _, issues := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("authorization header = %q", got)
		}
		w.Write([]byte(`{"rt_cd":"0","output":[{"crcy_cd":"USD","frcr_gnrl_ord_psbl_amt":"100"}]}`))
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.GetForeignMargin(ctx, AccountParams{CANO: "500"}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if n := atomic.LoadInt64(issues); n != 1 {
		t.Fatalf("expected 1 token issue, got %d", n)
	}
}

func TestRefreshTokenForcesReissue(t *testing.T) {
	c, _, issues := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rt_cd":"0","output":[]}`))
	})

	ctx := context.Background()
	if _, err := c.GetForeignMargin(ctx, AccountParams{}); err != nil {
		t.Fatal(err)
	}
	if err := c.RefreshToken(ctx); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt64(issues); n != 2 {
		t.Fatalf("expected 2 token issues, got %d", n)
	}
}

func TestBusinessRejectionBecomesAPIError(t *testing.T) {
	c, _, _ := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rt_cd":"1","msg_cd":"APBK0919","msg1":"주문가능금액을 초과했습니다"}`))
	})

	_, err := c.GetForeignMargin(context.Background(), AccountParams{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != "APBK0919" {
		t.Fatalf("unexpected code %q", apiErr.Code)
	}
}

func TestSubmitOrderSandboxTrIDs(t *testing.T) {
	var trIDs []string
	c, _, _ := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		trIDs = append(trIDs, r.Header.Get("tr_id"))
		var body orderRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.OrdDvsn != "00" || body.OrdSvrDvsnCd != "0" {
			t.Errorf("unexpected order division fields: %+v", body)
		}
		w.Write([]byte(`{"rt_cd":"0","output":{"ODNO":"30135009","ORD_TMD":"093000"}}`))
	})

	ctx := context.Background()
	ack, err := c.SubmitOrder(ctx, SubmitOrderRequest{CANO: "500", Code: "AAPL", IsBuy: true, Qty: 1, Price: 100})
	if err != nil {
		t.Fatal(err)
	}
	if ack.OrderNo != "30135009" {
		t.Fatalf("unexpected order no %q", ack.OrderNo)
	}
	if _, err := c.SubmitOrder(ctx, SubmitOrderRequest{CANO: "500", Code: "AAPL", Qty: 1, Price: 100}); err != nil {
		t.Fatal(err)
	}
	if len(trIDs) != 2 || trIDs[0] != trOrderBuySandbox || trIDs[1] != trOrderSellSandbox {
		t.Fatalf("unexpected tr_ids %v", trIDs)
	}
}

func TestSubmitOrderRejectsNonPositiveQty(t *testing.T) {
	c, _, _ := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := c.SubmitOrder(context.Background(), SubmitOrderRequest{Code: "AAPL"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestInquireBalanceSkipsEmptyRows(t *testing.T) {
	c, _, _ := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("tr_id"); got != trBalanceReal {
			t.Errorf("tr_id = %q", got)
		}
		w.Write([]byte(`{
			"rt_cd":"0",
			"output1":[
				{"ovrs_pdno":"AAPL","ovrs_cblc_qty":"5","ovrs_stck_evlu_amt":"1012.50"},
				{"ovrs_pdno":"MSFT","ovrs_cblc_qty":"0","ovrs_stck_evlu_amt":"0"}
			],
			"output2":{"frcr_buy_amt_smtl1":"2000.00","ovrs_rlzt_pfls_amt":"12.5","tot_evlu_pfls_amt":"30"}
		}`))
	})

	bal, err := c.InquireBalance(context.Background(), AccountParams{CANO: "500"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bal.Positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(bal.Positions))
	}
	// 1012.50 truncates to 1012.
	if bal.Positions[0].MarketValue != 1012 {
		t.Fatalf("market value = %d", bal.Positions[0].MarketValue)
	}
	// 2000 - 1012 = 988.
	if got := bal.CashEstimate(); got != 988 {
		t.Fatalf("cash estimate = %d", got)
	}
}

func TestInquireExecutionsFollowsContinuation(t *testing.T) {
	var calls int
	c, _, _ := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			if fk := r.URL.Query().Get("CTX_AREA_FK200"); fk != "" {
				t.Errorf("first page fk = %q", fk)
			}
			w.Write([]byte(`{
				"rt_cd":"0","ctx_area_fk200":"FK1","ctx_area_nk200":"NK1",
				"output":[{"odno":"2000","orgn_odno":"1000","sll_buy_dvsn_cd":"02","pdno":"AAPL","ft_ccld_qty":"3","ft_ccld_unpr3":"101.5000"}]
			}`))
			return
		}
		if nk := r.URL.Query().Get("CTX_AREA_NK200"); nk != "NK1" {
			t.Errorf("second page nk = %q", nk)
		}
		w.Write([]byte(`{
			"rt_cd":"0","ctx_area_fk200":"","ctx_area_nk200":"",
			"output":[{"odno":"2001","sll_buy_dvsn_cd":"01","pdno":"MSFT","ft_ccld_qty":"2","ft_ccld_unpr3":"50"}]
		}`))
	})

	records, err := c.InquireExecutions(context.Background(), AccountParams{CANO: "500"}, ExecutionsFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 pages, got %d", calls)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	if first.OrigOrderNo != "1000" || first.SideCode != SideCodeBuy || first.FillQty != 3 {
		t.Fatalf("unexpected record: %+v", first)
	}
	// 101.5000 truncates to 101.
	if first.FillPrice != 101 {
		t.Fatalf("fill price = %d", first.FillPrice)
	}
}

func TestGetPriceMapsQuotationExchange(t *testing.T) {
	c, _, _ := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		if excd := r.URL.Query().Get("EXCD"); excd != "NAS" {
			t.Errorf("EXCD = %q", excd)
		}
		w.Write([]byte(`{"rt_cd":"0","output":{"rsym":"DNASAAPL","last":"230.1200"}}`))
	})

	quote, err := c.GetPrice(context.Background(), "NASD", "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if quote.Last != 230 {
		t.Fatalf("last = %d", quote.Last)
	}
}

func TestGetPriceRejectsZeroPrice(t *testing.T) {
	c, _, _ := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rt_cd":"0","output":{"rsym":"","last":"0"}}`))
	})
	if _, err := c.GetPrice(context.Background(), "NASD", "AAPL"); err == nil {
		t.Fatal("expected error for zero price")
	}
}

func TestOrderableCash(t *testing.T) {
	entries := []MarginEntry{
		{Currency: "JPY", OrderableCash: 100000},
		{Currency: "USD", OrderableCash: 1234},
	}
	if got := OrderableCash(entries, "USD"); got != 1234 {
		t.Fatalf("got %d", got)
	}
	if got := OrderableCash(entries, "HKD"); got != 0 {
		t.Fatalf("expected 0 for absent currency, got %d", got)
	}
}

func TestParseAmountTruncatesTowardZero(t *testing.T) {
	cases := map[string]int64{
		"101.9999": 101,
		"-3.7":     -3,
		"0":        0,
		"":         0,
		"garbage":  0,
	}
	for in, want := range cases {
		if got := parseAmount(in); got != want {
			t.Fatalf("parseAmount(%q) = %d, want %d", in, got, want)
		}
	}
}
