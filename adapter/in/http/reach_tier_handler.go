package http

import (
	"errors"
	"fmt"

	"reach_server/core/domain"
	"reach_server/core/port/in"
	"reach_server/core/service/tier"
	"reach_server/infra/middleware"
	"reach_server/pkg/apperr"
	"reach_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// maxVerifyAccounts bounds one verification request; lookups are sequential.
const maxVerifyAccounts = 8

type TierHandler struct {
	tierService in.TierService
}

func NewTierHandler(tierService in.TierService) *TierHandler {
	return &TierHandler{tierService: tierService}
}

func (h *TierHandler) Register(router fiber.Router) {
	router.Post("/tiers/calculate", h.Calculate)

	creators := router.Group("/creators/me", middleware.RequireRole(domain.RoleCreator, domain.RoleAdmin))
	creators.Get("/tier", h.GetMyTier)
	creators.Post("/verify", h.Verify)
}

// Calculate previews the tier for posted metrics without storing anything.
func (h *TierHandler) Calculate(c *fiber.Ctx) error {
	var metrics domain.SocialMetrics
	if err := parseBody(c, &metrics); err != nil {
		return err
	}
	for p, m := range metrics {
		if !p.Valid() {
			return apperr.InvalidInput("platform", fmt.Sprintf("unknown platform %q", p))
		}
		if m.Followers < 0 {
			return apperr.InvalidInput("followers", "must not be negative")
		}
	}
	return response.OK(c, h.tierService.Preview(metrics))
}

func (h *TierHandler) GetMyTier(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	t, err := h.tierService.GetCreatorTier(c.Context(), userID)
	if err != nil {
		return err
	}
	if t == nil {
		return apperr.NotFound("creator tier")
	}
	return response.OK(c, t)
}

func (h *TierHandler) Verify(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req in.VerifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if len(req.Accounts) > maxVerifyAccounts {
		return apperr.InvalidInput("accounts", fmt.Sprintf("at most %d accounts per request", maxVerifyAccounts))
	}
	for i, acc := range req.Accounts {
		p, ok := domain.ParsePlatform(string(acc.Platform))
		if !ok {
			return apperr.InvalidInput("platform", fmt.Sprintf("unknown platform %q", acc.Platform))
		}
		if acc.Identifier == "" {
			return apperr.MissingField("identifier")
		}
		req.Accounts[i].Platform = p
	}

	outcome, err := h.tierService.Verify(c.Context(), userID, req.Accounts)
	if err != nil {
		if errors.Is(err, tier.ErrNoAccounts) {
			return apperr.BadRequest(err.Error())
		}
		return err
	}
	return response.OK(c, outcome)
}
