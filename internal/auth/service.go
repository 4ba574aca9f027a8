package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/common"
)

// Roles known to the POS.
const (
	RoleKasir = "kasir"
	RoleAdmin = "admin"
)

const roleClaim = "role"

// Accounts is the lookup surface the service needs. *Store satisfies it.
type Accounts interface {
	ByCode(ctx context.Context, code string) (Employee, error)
	ByID(ctx context.Context, id string) (Employee, error)
}

// Service verifies PIN logins and issues short-lived access tokens.
type Service struct {
	Accounts  Accounts
	Secret    []byte
	Issuer    string
	AccessTTL time.Duration
	Now       func() time.Time

	algorithm jwa.SignatureAlgorithm
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) alg() jwa.SignatureAlgorithm {
	if s.algorithm == "" {
		s.algorithm = jwa.HS256
	}
	return s.algorithm
}

// Session is the issued token with its identity claims.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Employee  Employee  `json:"employee"`
}

// Login checks the employee code and PIN and returns a signed session. Wrong
// code and wrong PIN are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, code, pin string) (Session, error) {
	unauthorized := common.NewAppError("INVALID_CREDENTIALS", "employee code or pin is wrong", http.StatusUnauthorized, nil)
	emp, err := s.Accounts.ByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, unauthorized
		}
		return Session{}, err
	}
	match, err := argon2id.ComparePasswordAndHash(pin, emp.PINHash)
	if err != nil {
		return Session{}, fmt.Errorf("verify pin: %w", err)
	}
	if !match {
		return Session{}, unauthorized
	}

	now := s.now()
	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	expires := now.Add(ttl)
	token, err := jwt.NewBuilder().
		Subject(emp.ID).
		Issuer(s.Issuer).
		IssuedAt(now).
		Expiration(expires).
		Claim(roleClaim, emp.Role).
		Build()
	if err != nil {
		return Session{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.alg(), s.Secret))
	if err != nil {
		return Session{}, err
	}
	return Session{Token: string(signed), ExpiresAt: expires, Employee: emp}, nil
}

// ParseAccessToken validates a token and returns the subject and role claims.
func (s *Service) ParseAccessToken(token string) (string, string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", "", common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	options := []jwt.ParseOption{
		jwt.WithKey(s.alg(), s.Secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	}
	if s.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.Issuer))
	}
	parsed, err := jwt.ParseString(trimmed, options...)
	if err != nil {
		return "", "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	role := ""
	if v, ok := parsed.Get(roleClaim); ok {
		role, _ = v.(string)
	}
	return parsed.Subject(), role, nil
}
