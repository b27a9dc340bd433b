package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/cortex-backend/internal/data/repos"
	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/pkg/ctxutil"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrUnknownUser  = errors.New("token subject does not match a user")
)

// AuthService verifies bearer tokens and issues them for the admin CLI.
// Registration and login live with the identity provider.
type AuthService interface {
	IssueToken(user *domain.User) (string, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IsAdmin(email string) bool
	GetAccessTTL() time.Duration
}

type JWTClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type authService struct {
	log          *logger.Logger
	userRepo     repos.UserRepo
	jwtSecretKey string
	accessTTL    time.Duration
	admins       map[string]struct{}
	now          func() time.Time
}

func NewAuthService(
	log *logger.Logger,
	userRepo repos.UserRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	adminEmails []string,
) AuthService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &authService{
		log:          log.With("service", "AuthService"),
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		admins:       admins,
		now:          time.Now,
	}
}

func (as *authService) IssueToken(user *domain.User) (string, error) {
	if user == nil || user.ID == uuid.Nil {
		return "", fmt.Errorf("issue token: user is required")
	}
	now := as.now()
	claims := JWTClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

// SetContextFromToken validates the token, loads its user and attaches the
// identity to the request data already on ctx (or a fresh one).
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil {
		return ctx, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	user, err := as.userRepo.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return ctx, fmt.Errorf("load token user: %w", err)
	}
	if user == nil {
		return ctx, ErrUnknownUser
	}

	rd := ctxutil.GetRequestData(ctx)
	if rd == nil {
		rd = &ctxutil.RequestData{}
		ctx = ctxutil.WithRequestData(ctx, rd)
	}
	rd.UserID = user.ID
	rd.Email = user.Email
	rd.IsAdmin = as.IsAdmin(user.Email)
	return ctx, nil
}

func (as *authService) IsAdmin(email string) bool {
	_, ok := as.admins[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
