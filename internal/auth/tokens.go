package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vapmail16/synonym-quest-sub000/pkg/utilities"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("access token required")
)

// Config controls token signing and lifetimes.
type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ConfigFromEnv reads JWT_SECRET and optional TTL overrides.
func ConfigFromEnv() Config {
	return Config{
		Secret:     []byte(utilities.EnvString("JWT_SECRET", "")),
		Issuer:     utilities.EnvString("JWT_ISSUER", "synonym-quest"),
		AccessTTL:  utilities.EnvDuration("JWT_ACCESS_TTL", 7*24*time.Hour),
		RefreshTTL: utilities.EnvDuration("JWT_REFRESH_TTL", 30*24*time.Hour),
	}
}

// Claims are carried by both token kinds; Kind keeps a refresh token from
// being accepted as an access token and vice versa.
type Claims struct {
	UserID    int64  `json:"uid"`
	SessionID string `json:"sid"`
	Kind      string `json:"typ"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 tokens.
type Signer struct {
	cfg Config
	now func() time.Time
}

func NewSigner(cfg Config) (*Signer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 7 * 24 * time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	return &Signer{cfg: cfg, now: time.Now}, nil
}

// issued describes a freshly signed pair.
type issued struct {
	TokenPair
	RefreshExpiresAt time.Time
}

func (s *Signer) issue(userID int64, sessionID string) (issued, error) {
	now := s.now()
	accessExp := now.Add(s.cfg.AccessTTL)
	refreshExp := now.Add(s.cfg.RefreshTTL)
	access, err := s.sign(userID, sessionID, kindAccess, now, accessExp)
	if err != nil {
		return issued{}, err
	}
	refresh, err := s.sign(userID, sessionID, kindRefresh, now, refreshExp)
	if err != nil {
		return issued{}, err
	}
	return issued{
		TokenPair:        TokenPair{Token: access, RefreshToken: refresh, ExpiresAt: accessExp},
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *Signer) sign(userID int64, sessionID, kind string, now, exp time.Time) (string, error) {
	claims := Claims{
		UserID:    userID,
		SessionID: sessionID,
		Kind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        utilities.NewKSUID(),
			Issuer:    s.cfg.Issuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
}

// parse verifies signature, expiry and kind.
func (s *Signer) parse(token, kind string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind || claims.SessionID == "" || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
