package api

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"github.com/haconeco/infra-tracker/internal/config"
	"github.com/haconeco/infra-tracker/internal/domain"
)

// ErrAuthNotConfigured は検証鍵が1つも設定されていない場合のエラー。
var ErrAuthNotConfigured = errors.New("token verification is not configured")

// Claims はIDプロバイダが発行するトークンのクレーム。
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier はBearerトークンを検証し Principal を解決する。
// jwks_url が設定されていればJWKS(RS/ES系)、hmac_secret が設定されていればHS256で検証する。
type TokenVerifier struct {
	hmacSecret []byte
	issuer     string
	jwks       *keyfunc.JWKS
}

// NewTokenVerifier は認証設定からTokenVerifierを生成する。
// JWKSの取得に失敗した場合はエラーを返す。
func NewTokenVerifier(cfg config.AuthConfig) (*TokenVerifier, error) {
	v := &TokenVerifier{
		issuer: cfg.Issuer,
	}
	if cfg.HMACSecret != "" {
		v.hmacSecret = []byte(cfg.HMACSecret)
	}
	if cfg.JWKSURL != "" {
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				slog.Warn("failed to refresh JWKS", "error", err)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
		}
		v.jwks = jwks
	}
	return v, nil
}

// Close はJWKSのバックグラウンド更新を停止する。
func (v *TokenVerifier) Close() {
	if v != nil && v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// Verify はトークンを検証し Principal を返す。
func (v *TokenVerifier) Verify(tokenString string) (domain.Principal, error) {
	if v == nil || (v.jwks == nil && v.hmacSecret == nil) {
		return domain.Principal{}, ErrAuthNotConfigured
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return domain.Principal{}, errors.New("invalid token")
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return domain.Principal{}, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if claims.Subject == "" {
		return domain.Principal{}, errors.New("token has no subject")
	}

	role := domain.Role(claims.Role)
	if !role.IsValid() {
		return domain.Principal{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	return domain.Principal{
		ID:          claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		Role:        role,
	}, nil
}

func (v *TokenVerifier) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.hmacSecret == nil {
			return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
		}
		return v.hmacSecret, nil
	default:
		if v.jwks == nil {
			return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
		}
		return v.jwks.Keyfunc(token)
	}
}
