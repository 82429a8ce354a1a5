package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chat-backend/internal/domain/llm"
	"chat-backend/internal/interfaces/httpserver/dto"
)

// ModelHandler serves the model catalog.
type ModelHandler struct {
	catalog *llm.Catalog
	log     zerolog.Logger
}

// NewModelHandler constructs the handler.
func NewModelHandler(catalog *llm.Catalog, log zerolog.Logger) *ModelHandler {
	return &ModelHandler{
		catalog: catalog,
		log:     log.With().Str("handler", "model").Logger(),
	}
}

// List handles GET /v1/models
// @Summary List servable models
// @Description Lists models whose provider has credentials configured. Supports provider, tools_only, and recommended filters.
// @Tags Models
// @Produce json
// @Param provider query string false "Filter by provider"
// @Param tools_only query bool false "Only models with tool support"
// @Param recommended query bool false "Only recommended models"
// @Success 200 {object} dto.ModelListPayload
// @Router /v1/models [get]
func (h *ModelHandler) List(c *gin.Context) {
	if c.Query("recommended") == "true" {
		c.JSON(http.StatusOK, dto.FromModels(h.catalog.Recommended()))
		return
	}

	provider := c.Query("provider")
	toolsOnly := c.Query("tools_only") == "true"
	c.JSON(http.StatusOK, dto.FromModels(h.catalog.Filter(provider, toolsOnly)))
}
