package middleware

import (
	"fmt"
	"strings"

	"reach_server/core/domain"
	"reach_server/pkg/apperr"
	"reach_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTAuth validates HS256 Supabase access tokens and stores user_id and role
// in the request locals.
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip auth for CORS preflight requests
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		tokenString := bearerToken(c.Get(fiber.HeaderAuthorization))
		if tokenString == "" {
			return apperr.Unauthorized("missing authorization")
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if secret == "" {
				return nil, fmt.Errorf("JWT secret not configured")
			}
			return []byte(secret), nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		)
		if err != nil || !token.Valid {
			logger.WithError(err).Warn("JWT validation failed")
			return apperr.InvalidToken("invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return apperr.InvalidToken("invalid claims")
		}

		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil {
			return apperr.InvalidToken("invalid user id in token")
		}

		c.Locals("user_id", userID)
		c.Locals("role", RoleFromClaims(claims))

		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RoleFromClaims reads the viewer role from app_metadata.role, then
// user_metadata.role. Users can edit their own user_metadata, so admin is
// honored only from app_metadata. Missing or unknown roles are anonymous.
func RoleFromClaims(claims jwt.MapClaims) domain.Role {
	if role, ok := metadataRole(claims, "app_metadata"); ok {
		return domain.ParseRole(role)
	}
	if role, ok := metadataRole(claims, "user_metadata"); ok {
		if parsed := domain.ParseRole(role); parsed != domain.RoleAdmin {
			return parsed
		}
	}
	return domain.RoleAnonymous
}

func metadataRole(claims jwt.MapClaims, key string) (string, bool) {
	meta, ok := claims[key].(map[string]any)
	if !ok {
		return "", false
	}
	role, ok := meta["role"].(string)
	return role, ok && role != ""
}

// GetRole returns the authenticated viewer's role.
func GetRole(c *fiber.Ctx) domain.Role {
	if role, ok := c.Locals("role").(domain.Role); ok {
		return role
	}
	return domain.RoleAnonymous
}

// RequireRole rejects viewers whose role is not listed.
func RequireRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return apperr.Forbidden(fmt.Sprintf("role %s may not access this resource", role))
	}
}
