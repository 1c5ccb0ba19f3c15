package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"marketplace-chat/config"
	chat_errors "marketplace-chat/pkg/errors"
	"marketplace-chat/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService verifies bearer tokens issued by the marketplace API. It never
// issues tokens itself.
type AuthService struct {
	jwtSecret []byte
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{jwtSecret: []byte(cfg.JWTSecret)}
}

// AccessClaims accepts either a string subject or the numeric "id" claim the
// marketplace API has always put in its tokens.
type AccessClaims struct {
	ID    uint   `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Roles []int  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the minimal authenticated caller.
type Identity struct {
	UserID uint
	Name   string
	Roles  []int
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, chat_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, chat_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, chat_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, chat_errors.ErrUnauthorized
	}

	return *claims, nil
}

// Authenticate verifies the token and reduces its claims to an Identity.
func (s *AuthService) Authenticate(tokenString string) (Identity, error) {
	claims, err := s.ParseAccessToken(strings.TrimSpace(tokenString))
	if err != nil {
		return Identity{}, err
	}

	userID := claims.ID
	if userID == 0 && claims.Subject != "" {
		parsed, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			return Identity{}, chat_errors.ErrUnauthorized
		}
		userID = uint(parsed)
	}
	if userID == 0 {
		return Identity{}, chat_errors.ErrUnauthorized
	}

	return Identity{UserID: userID, Name: claims.Name, Roles: claims.Roles}, nil
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, chat_errors.ErrInvalidInput):
		return 400
	case errors.Is(err, chat_errors.ErrUnauthorized):
		return 401
	case errors.Is(err, chat_errors.ErrForbidden):
		return 403
	case errors.Is(err, chat_errors.ErrNotFound):
		return 404
	case errors.Is(err, chat_errors.ErrAlreadyExists):
		return 409
	case errors.Is(err, chat_errors.ErrRateLimited):
		return 429
	default:
		return 500
	}
}

// WithUserContext stores the authenticated user id under the key the
// logger reads, so request logs carry it.
func WithUserContext(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, logger.UserIdKey, userID)
}

func UserIDFromContext(ctx context.Context) (uint, bool) {
	value := ctx.Value(logger.UserIdKey)
	if value == nil {
		return 0, false
	}
	userID, ok := value.(uint)
	return userID, ok && userID != 0
}
