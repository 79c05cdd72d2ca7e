package handler

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/softiel/backend/internal/auth"
	"github.com/softiel/backend/internal/config"
	"github.com/softiel/backend/internal/dto"
	"github.com/softiel/backend/internal/middleware"
	"github.com/softiel/backend/internal/thread"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenRevoker blacklists a token id for ttl.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthHandler signs in the single configured moderator account.
type AuthHandler struct {
	jwt          *auth.JWTService
	classifier   thread.Classifier
	passwordHash []byte
	revoker      TokenRevoker
	validate     *validator.Validate
	log          *zap.Logger
}

func NewAuthHandler(jwt *auth.JWTService, cfg config.CommentsConfig, revoker TokenRevoker, validate *validator.Validate, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		jwt:          jwt,
		classifier:   thread.NewClassifier(cfg.AdminEmail),
		passwordHash: []byte(cfg.AdminPasswordHash),
		revoker:      revoker,
		validate:     validate,
		log:          log,
	}
}

// AdminSubject is the stable token subject of the moderator account.
func AdminSubject(adminEmail string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(adminEmail))
}

// Login - POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse(
			"VALIDATION_ERROR", "Invalid request body",
		))
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	if len(h.passwordHash) == 0 || !h.classifier.IsAdminEmail(req.Email) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse(
			"INVALID_CREDENTIALS", "Invalid email or password",
		))
	}

	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)); err != nil {
		h.log.Warn("failed admin login", zap.String("client_ip", c.IP()))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse(
			"INVALID_CREDENTIALS", "Invalid email or password",
		))
	}

	accessToken, _, err := h.jwt.GenerateAccessToken(AdminSubject(h.classifier.AdminEmail()), "admin")
	if err != nil {
		h.log.Error("sign access token failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse(
			"INTERNAL_ERROR", "Could not create token",
		))
	}

	return c.JSON(dto.SuccessResponse(dto.LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.jwt.GetAccessExpiry().Seconds()),
		Role:        "admin",
	}, ""))
}

// Logout - POST /auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims := middleware.GetClaims(c)
	if claims != nil && h.revoker != nil {
		if err := h.revoker.Revoke(c.UserContext(), claims.JTI, auth.RemainingTTL(claims)); err != nil {
			h.log.Error("revoke token failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse(
				"INTERNAL_ERROR", "Could not revoke token",
			))
		}
	}
	return c.JSON(dto.SuccessResponse(nil, "Logged out"))
}

// Me - GET /auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse(fiber.Map{
		"email": h.classifier.AdminEmail(),
		"role":  middleware.GetUserRole(c),
	}, ""))
}
