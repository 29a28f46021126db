package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
)

// PricingHandler serves the pricing document on its original /api/pricing
// paths. Bodies match the /config/:key routes.
type PricingHandler struct {
	config *ConfigHandler
}

func NewPricingHandler(config *ConfigHandler) *PricingHandler {
	return &PricingHandler{config: config}
}

// RegisterRoutes registers the pricing routes
func (h *PricingHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/pricing", h.Get)
	g.POST("/pricing", h.Save)
}

// Get handles GET /pricing
func (h *PricingHandler) Get(c echo.Context) error {
	return h.config.get(c, models.PricingKey)
}

// Save handles POST /pricing
func (h *PricingHandler) Save(c echo.Context) error {
	return h.config.put(c, models.PricingKey)
}
