package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kistrader/internal/repository"
)

type PositionHandler struct {
	Repo repository.Ledger
}

func (h *PositionHandler) Register(r *gin.Engine) {
	p := r.Group("/api/v1/positions")
	p.GET("", h.list)
	p.GET("/:code", h.get)
}

func (h *PositionHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListPositions(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"total": len(items)})
}

func (h *PositionHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		Error(c, http.StatusBadRequest, "invalid code", nil)
		return
	}
	item, err := h.Repo.GetPositionByCode(c.Request.Context(), code)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "position not found", nil)
		return
	}
	Ok(c, item, nil)
}
