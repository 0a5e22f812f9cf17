package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/ameena/internal/models"
	"github.com/yoockh/ameena/internal/services"
	"github.com/yoockh/ameena/internal/utils"
)

type TranslateHandler struct {
	svc services.TranslateService
}

func NewTranslateHandler(svc services.TranslateService) *TranslateHandler {
	return &TranslateHandler{svc: svc}
}

func (h *TranslateHandler) Translate(c *gin.Context) {
	var req models.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TranslateHandler.Translate", "text is required", err))
		return
	}

	out, err := h.svc.Translate(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.TranslateResponse{Translation: out, OriginalText: req.Text})
}
