package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kistrader/internal/service"
)

type CycleHandler struct {
	Cycle *service.CycleService
}

func (h *CycleHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/cycle/run", h.run)
}

// run triggers one full cycle synchronously. The response carries the
// same summary the scheduled run would log.
func (h *CycleHandler) run(c *gin.Context) {
	if h.Cycle == nil {
		Error(c, http.StatusServiceUnavailable, "cycle service unavailable", nil)
		return
	}
	summary, err := h.Cycle.RunOnce(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrCycleInFlight) {
			Error(c, http.StatusConflict, err.Error(), nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{
		"reconciled_buys":   summary.Reconciled.Buys,
		"reconciled_sells":  summary.Reconciled.Sells,
		"reconciled_skips":  summary.Reconciled.Skipped,
		"reconciled_failed": summary.Reconciled.Failed,
		"planned":           summary.Planned,
		"submitted":         summary.Submitted,
		"submit_failed":     summary.SubmitFailed,
		"simulated_cash":    summary.SimulatedCash,
	}, nil)
}
