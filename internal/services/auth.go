package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/internal/config"
	"github.com/temcen/copyink/pkg/models"
)

const (
	firebaseJWKSURL    = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	firebaseIssuerBase = "https://securetoken.google.com/"
	defaultTokenLeeway = 30 * time.Second
)

// TokenVerifier turns a bearer token into a verified identity. Failures
// wrap ErrUnauthorized.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Identity, error)
}

// AuthService verifies Firebase ID tokens against Google's published keys.
type AuthService struct {
	keyfunc keyfunc.Keyfunc
	parser  *jwt.Parser
	logger  *logrus.Logger
}

func NewAuthService(ctx context.Context, cfg config.AuthConfig, logger *logrus.Logger) (*AuthService, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("auth.project_id must be set")
	}
	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		jwksURL = firebaseJWKSURL
	}

	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to init JWKS keyfunc: %w", err)
	}
	return NewAuthServiceWithKeyfunc(cfg.ProjectID, kf, cfg.Leeway, logger), nil
}

// NewAuthServiceWithKeyfunc builds the verifier around an existing key set.
func NewAuthServiceWithKeyfunc(projectID string, kf keyfunc.Keyfunc, leeway time.Duration, logger *logrus.Logger) *AuthService {
	if leeway <= 0 {
		leeway = defaultTokenLeeway
	}
	return &AuthService{
		keyfunc: kf,
		parser: jwt.NewParser(
			jwt.WithIssuer(firebaseIssuerBase+projectID),
			jwt.WithAudience(projectID),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(leeway),
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		),
		logger: logger,
	}
}

func (s *AuthService) Verify(_ context.Context, tokenString string) (*models.Identity, error) {
	claims := &models.IDTokenClaims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, s.keyfunc.Keyfunc)
	if err != nil {
		s.logger.WithError(err).Debug("Token verification failed")
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token missing sub", ErrUnauthorized)
	}

	return &models.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
