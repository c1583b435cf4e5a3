package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_cycles_total",
		Help: "Rebalance cycles run, by outcome.",
	}, []string{"outcome"})

	reportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_execution_reports_total",
		Help: "Execution reports processed by the reconciler, by result.",
	}, []string{"result"})

	ordersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_orders_total",
		Help: "Orders submitted to the broker, by side and outcome.",
	}, []string{"side", "outcome"})

	simulatedCash = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trader_simulated_cash",
		Help: "Planner's simulated cash figure after the last cycle.",
	})
)

// Recorder is the metrics sink handed to the cycle service. Nil-safe so
// wiring it is optional.
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RecordCycle(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	cyclesTotal.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordReports(buys, sells, skipped, failed int) {
	reportsTotal.WithLabelValues("buy").Add(float64(buys))
	reportsTotal.WithLabelValues("sell").Add(float64(sells))
	reportsTotal.WithLabelValues("skipped").Add(float64(skipped))
	reportsTotal.WithLabelValues("failed").Add(float64(failed))
}

func (r *Recorder) RecordOrder(side string, ok bool) {
	outcome := "submitted"
	if !ok {
		outcome = "failed"
	}
	ordersTotal.WithLabelValues(side, outcome).Inc()
}

func (r *Recorder) RecordSimulatedCash(cash int64) {
	simulatedCash.Set(float64(cash))
}
