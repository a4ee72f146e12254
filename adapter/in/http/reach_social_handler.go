package http

import (
	"fmt"
	"strings"

	"reach_server/core/domain"
	"reach_server/core/port/in"
	"reach_server/core/service/social"
	"reach_server/pkg/apperr"
	"reach_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type SocialHandler struct {
	socialService in.SocialService
	limit         fiber.Handler
}

// NewSocialHandler wires the profile preview. limit guards the outbound
// quota per caller and may be nil.
func NewSocialHandler(socialService in.SocialService, limit fiber.Handler) *SocialHandler {
	return &SocialHandler{socialService: socialService, limit: limit}
}

func (h *SocialHandler) Register(router fiber.Router) {
	handlers := []fiber.Handler{h.GetProfile}
	if h.limit != nil {
		handlers = append([]fiber.Handler{h.limit}, handlers...)
	}
	router.Get("/social/:platform/profile", handlers...)
}

// GetProfile runs the normalizer for one identifier without storing it.
func (h *SocialHandler) GetProfile(c *fiber.Ctx) error {
	platform, ok := domain.ParsePlatform(c.Params("platform"))
	if !ok {
		return apperr.InvalidInput("platform", fmt.Sprintf("unknown platform %q", c.Params("platform")))
	}
	identifier := strings.TrimSpace(c.Query("identifier"))
	if identifier == "" {
		return apperr.MissingField("identifier")
	}

	profile, err := h.socialService.FetchProfile(c.Context(), identifier, platform)
	if err != nil {
		return social.ToAppError(err)
	}
	return response.OK(c, profile)
}
