package rebalance

import (
	"context"
	"errors"
	"testing"

	"kistrader/internal/client/kis"
	"kistrader/internal/config"
	"kistrader/internal/models"
	"kistrader/internal/repository"
)

type fakeSubmitter struct {
	requests []kis.SubmitOrderRequest
	ack      *kis.OrderAck
	err      error
}

func (f *fakeSubmitter) SubmitOrder(ctx context.Context, req kis.SubmitOrderRequest) (*kis.OrderAck, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.ack, nil
}

// fakeOrderStore only implements what the executor touches; the embedded
// interface panics on anything else, which is the point.
type fakeOrderStore struct {
	repository.Ledger
	created   []*models.Order
	createErr error
}

func (f *fakeOrderStore) CreateOrder(ctx context.Context, item *models.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, item)
	return nil
}

func TestExecuteRecordsAcknowledgedOrder(t *testing.T) {
	gw := &fakeSubmitter{ack: &kis.OrderAck{OrderNo: "30135009", Raw: []byte(`{"ODNO":"30135009"}`)}}
	store := &fakeOrderStore{}
	e := &Executor{
		Gateway: gw,
		Repo:    store,
		Account: config.AccountConfig{CANO: "500", AcntPrdtCd: "01", ExchangeCd: "NASD"},
	}

	plan := Plan{Instructions: []Instruction{
		{Code: "AAPL", Side: SideBuy, Qty: 3, Price: 100},
	}}
	outcomes := e.Execute(context.Background(), plan)

	if len(outcomes) != 1 || outcomes[0].Err != nil {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
	if len(gw.requests) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(gw.requests))
	}
	req := gw.requests[0]
	if !req.IsBuy || req.Code != "AAPL" || req.Qty != 3 || req.Price != 100 || req.CANO != "500" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected 1 order row, got %d", len(store.created))
	}
	order := store.created[0]
	if order.OrderID == "" || order.OrderID != outcomes[0].OrderID {
		t.Fatalf("order id mismatch: %q vs %q", order.OrderID, outcomes[0].OrderID)
	}
	if order.BrokerOrderNo != "30135009" {
		t.Fatalf("expected broker order no recorded, got %q", order.BrokerOrderNo)
	}
	if order.Status != models.OrderStatusSubmitted {
		t.Fatalf("expected submitted, got %s", order.Status)
	}
	if order.CumPrice != 300 || order.Qty != 3 || order.RemainQty != 3 {
		t.Fatalf("unexpected order amounts: %+v", order)
	}
	if order.OrderType != "rebalance_buy" {
		t.Fatalf("expected rebalance_buy, got %s", order.OrderType)
	}
}

func TestExecuteRejectedOrderWritesNothing(t *testing.T) {
	gw := &fakeSubmitter{err: &kis.APIError{Code: "APBK0919", Message: "insufficient funds"}}
	store := &fakeOrderStore{}
	e := &Executor{Gateway: gw, Repo: store}

	plan := Plan{Instructions: []Instruction{
		{Code: "AAPL", Side: SideBuy, Qty: 1, Price: 100},
		{Code: "MSFT", Side: SideSell, Qty: 2, Price: 50},
	}}
	outcomes := e.Execute(context.Background(), plan)

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for _, out := range outcomes {
		if out.Err == nil {
			t.Fatalf("expected error outcome: %+v", out)
		}
		if out.OrderID != "" {
			t.Fatalf("rejected submission must not carry an order id: %+v", out)
		}
	}
	if len(store.created) != 0 {
		t.Fatalf("rejected submissions must not create rows, got %d", len(store.created))
	}
	// Both instructions were still attempted.
	if len(gw.requests) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(gw.requests))
	}
}

func TestExecuteLedgerWriteFailureSurfacesError(t *testing.T) {
	gw := &fakeSubmitter{ack: &kis.OrderAck{OrderNo: "1"}}
	store := &fakeOrderStore{createErr: errors.New("db down")}
	e := &Executor{Gateway: gw, Repo: store}

	outcomes := e.Execute(context.Background(), Plan{Instructions: []Instruction{
		{Code: "AAPL", Side: SideSell, Qty: 1, Price: 10},
	}})
	if len(outcomes) != 1 || outcomes[0].Err == nil {
		t.Fatalf("expected failed outcome: %+v", outcomes)
	}
}
