package http

import (
	"errors"
	"net/http"

	"reach_server/core/domain"
	"reach_server/core/port/in"
	"reach_server/core/service/tier"
	"reach_server/infra/middleware"
	"reach_server/pkg/apperr"
	"reach_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	recomputer in.TierRecomputer
}

func NewAdminHandler(recomputer in.TierRecomputer) *AdminHandler {
	return &AdminHandler{recomputer: recomputer}
}

func (h *AdminHandler) Register(router fiber.Router) {
	admin := router.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	admin.Post("/tiers/recompute", h.RecomputeTiers)
}

// RecomputeTiers runs the batch job inline and returns its summary. Only one
// run may be in flight across the scheduler and this endpoint.
func (h *AdminHandler) RecomputeTiers(c *fiber.Ctx) error {
	summary, err := h.recomputer.RecomputeAll(c.Context())
	if err != nil {
		if errors.Is(err, tier.ErrRecomputeRunning) {
			return apperr.New("RECOMPUTE_RUNNING", err.Error(), http.StatusConflict)
		}
		return err
	}
	return response.OK(c, summary)
}
