package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

// IdentityConfig describes how access tokens from the identity provider are verified.
type IdentityConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// IdentityService turns bearer tokens into authenticated actors. Sign-up and
// login live with the identity provider; this service only verifies.
type IdentityService struct {
	cfg IdentityConfig
	now func() time.Time
}

// NewIdentityService constructs the service.
func NewIdentityService(cfg IdentityConfig) *IdentityService {
	return &IdentityService{cfg: cfg, now: time.Now}
}

// ValidateToken parses and validates an access token returning the claims.
// Role names are matched case-insensitively.
func (s *IdentityService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	if s.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.cfg.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	claims.Role = models.UserRole(strings.ToUpper(strings.TrimSpace(string(claims.Role))))
	if claims.Actor().ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has no subject")
	}
	if !claims.Role.IsReviewer() && !claims.Role.IsSubmitter() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %q is not recognised", claims.Role))
	}
	return claims, nil
}

// IssueToken signs a token for actor. It backs local tooling; production
// tokens come from the identity provider.
func (s *IdentityService) IssueToken(actor models.Actor, ttl time.Duration) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(ttl)
	claims := &models.JWTClaims{
		UserID: actor.ID,
		Role:   actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if s.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}
