package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"agroai-backend/internal/app"
	"agroai-backend/internal/transport/http/response"
)

type TranslateHandler struct {
	service *app.TranslationService
}

func NewTranslateHandler(service *app.TranslationService) *TranslateHandler {
	return &TranslateHandler{service: service}
}

// Translate handles GET /api/translate/:lang. The translated locale map is
// returned directly, not wrapped in the envelope, because the frontend
// consumes it as an i18n resource file.
func (h *TranslateHandler) Translate(c *gin.Context) {
	translated, err := h.service.Translate(c.Request.Context(), c.Param("lang"))
	if err != nil {
		if errors.Is(err, app.ErrNotConfigured) {
			response.Fail(c, http.StatusInternalServerError, err.Error())
			return
		}
		response.Fail(c, http.StatusInternalServerError, "Failed to translate content.")
		return
	}

	c.JSON(http.StatusOK, translated)
}
