package middleware

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/softiel/backend/internal/auth"
	"github.com/softiel/backend/internal/dto"
)

const ViewerHeader = "X-Viewer-ID"

// maxViewerIDRunes keeps viewer keys within the comment_likes column.
const maxViewerIDRunes = 64

// TokenBlacklist reports revoked token ids.
type TokenBlacklist interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuthMiddleware struct {
	jwtService *auth.JWTService
	blacklist  TokenBlacklist
}

// NewAuthMiddleware builds the JWT guards. blacklist may be nil.
func NewAuthMiddleware(jwtService *auth.JWTService, blacklist TokenBlacklist) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		blacklist:  blacklist,
	}
}

func (m *AuthMiddleware) revoked(c *fiber.Ctx, jti string) bool {
	if m.blacklist == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
	defer cancel()
	revoked, err := m.blacklist.IsRevoked(ctx, jti)
	// an unreachable blacklist does not lock admins out
	return err == nil && revoked
}

// Required authentication
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse(
				"UNAUTHORIZED",
				"Missing token",
			))
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse(
				"UNAUTHORIZED",
				"Malformed token",
			))
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := m.jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse(
					"TOKEN_EXPIRED",
					"Token has expired",
				))
			}
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse(
				"INVALID_TOKEN",
				"Invalid token",
			))
		}

		if m.revoked(c, claims.JTI) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse(
				"TOKEN_REVOKED",
				"Token has been revoked",
			))
		}

		setClaims(c, claims)
		return c.Next()
	}
}

// Optional authentication
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Next()
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := m.jwtService.ValidateAccessToken(tokenString)
		if err != nil || m.revoked(c, claims.JTI) {
			return c.Next()
		}

		setClaims(c, claims)
		return c.Next()
	}
}

func setClaims(c *fiber.Ctx, claims *auth.AccessTokenClaims) {
	userID, _ := uuid.Parse(claims.Sub)
	c.Locals("userID", userID)
	c.Locals("userRole", claims.Role)
	c.Locals("jti", claims.JTI)
	c.Locals("claims", claims)
}

// Admin only
func (m *AuthMiddleware) AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetUserRole(c) != "admin" {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse(
				"FORBIDDEN",
				"Admin access required",
			))
		}
		return c.Next()
	}
}

// Get current user ID from context
func GetUserID(c *fiber.Ctx) *uuid.UUID {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return nil
	}
	return &userID
}

// Get current user role from context
func GetUserRole(c *fiber.Ctx) string {
	role, _ := c.Locals("userRole").(string)
	return role
}

// GetClaims returns the validated token claims, or nil.
func GetClaims(c *fiber.Ctx) *auth.AccessTokenClaims {
	claims, _ := c.Locals("claims").(*auth.AccessTokenClaims)
	return claims
}

// ViewerKey identifies the caller for like dedup: the token subject when
// authenticated, else the X-Viewer-ID header cut to 64 runes, else the client
// IP. Invalid UTF-8 in the header is replaced.
func ViewerKey(c *fiber.Ctx) string {
	if id := GetUserID(c); id != nil {
		return "user:" + id.String()
	}
	if v := strings.TrimSpace(c.Get(ViewerHeader)); v != "" {
		v = strings.ToValidUTF8(v, "\uFFFD")
		if utf8.RuneCountInString(v) > maxViewerIDRunes {
			v = string([]rune(v)[:maxViewerIDRunes])
		}
		return "anon:" + v
	}
	return "ip:" + c.IP()
}
