package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kistrader/internal/models"
	"kistrader/internal/repository"
)

type OrderHandler struct {
	Repo repository.Ledger
}

func (h *OrderHandler) Register(r *gin.Engine) {
	o := r.Group("/api/v1/orders")
	o.GET("", h.list)
	o.GET("/:id", h.get)
	o.POST("/:id/cancel", h.cancel)
}

func (h *OrderHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListOrdersParams{
		Status: strQueryPtr(c, "status"),
		Code:   strQueryPtr(c, "code"),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	items, err := h.Repo.ListOrders(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountOrders(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

func (h *OrderHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "order not found", nil)
		return
	}
	Ok(c, item, nil)
}

// cancel marks a still-open order cancelled in the ledger. It does not
// talk to the broker; cancellation on the broker side is a manual step.
func (h *OrderHandler) cancel(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "order not found", nil)
		return
	}
	if item.Status != models.OrderStatusSubmitted {
		Error(c, http.StatusConflict, "order is not open", map[string]any{"status": item.Status})
		return
	}
	if err := h.Repo.UpdateOrderStatus(c.Request.Context(), id, models.OrderStatusCancelled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	item.Status = models.OrderStatusCancelled
	Ok(c, item, nil)
}
