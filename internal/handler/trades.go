package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kistrader/internal/repository"
)

type TradeHandler struct {
	Repo repository.Ledger
}

func (h *TradeHandler) Register(r *gin.Engine) {
	t := r.Group("/api/v1/trades")
	t.GET("", h.list)
}

func (h *TradeHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListClosedTradesParams{
		Code:   strQueryPtr(c, "code"),
		Since:  timeQueryPtr(c, "since"),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	items, err := h.Repo.ListClosedTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountClosedTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}
