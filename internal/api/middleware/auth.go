package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
	"github.com/sanosuguru/go-book-reservation/internal/infrastructure/auth"
)

const identityContextKey = "identity"

// TokenVerifier はアクセストークンの検証を行う
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Identity, error)
}

// RevocationChecker はトークンの失効状態を確認する
type RevocationChecker interface {
	IsRevoked(ctx context.Context, customerID int64, issuedAt time.Time) (bool, error)
}

// Authenticate は Bearer トークンを検証して Identity をコンテキストに載せる
func Authenticate(verifier TokenVerifier, revocations RevocationChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return apperror.AuthenticationFailed("認証トークンが必要です")
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				return err
			}

			if revocations != nil {
				revoked, err := revocations.IsRevoked(c.Request().Context(), identity.CustomerID, identity.IssuedAt)
				if err != nil {
					return apperror.Database("失効確認に失敗しました", err)
				}
				if revoked {
					return apperror.AuthenticationFailed("トークンは失効しています")
				}
			}

			SetIdentity(c, identity)
			return next(c)
		}
	}
}

// RequireAdmin は admin ロールを要求する
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := IdentityFrom(c)
			if identity == nil {
				return apperror.AuthenticationFailed("認証が必要です")
			}
			if !identity.IsAdmin() {
				return apperror.Forbidden("この操作には管理者権限が必要です")
			}
			return next(c)
		}
	}
}

// SetIdentity は認証済み Identity をコンテキストに載せる
func SetIdentity(c echo.Context, identity *auth.Identity) {
	c.Set(identityContextKey, identity)
}

// IdentityFrom はコンテキストから認証済み Identity を取り出す
func IdentityFrom(c echo.Context) *auth.Identity {
	if identity, ok := c.Get(identityContextKey).(*auth.Identity); ok {
		return identity
	}
	return nil
}
