package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/ameena/internal/models"
	"github.com/yoockh/ameena/internal/services"
	"github.com/yoockh/ameena/internal/utils"
)

type TaxHandler struct {
	tax services.TaxService
}

func NewTaxHandler(tax services.TaxService) *TaxHandler {
	return &TaxHandler{tax: tax}
}

func (h *TaxHandler) Search(c *gin.Context) {
	const op = "TaxHandler.Search"

	var req models.TaxSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.EH(utils.CodeInvalidArgument, op, "Invalid request",
			"query is required (3-500 characters), limit must be between 1 and 10", err))
		return
	}
	limit := services.DefaultSearchLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	resp, err := h.tax.Search(c.Request.Context(), req.Query, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TaxHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.tax.Health(c.Request.Context()))
}
