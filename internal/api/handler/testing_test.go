package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-book-reservation/internal/api"
	"github.com/sanosuguru/go-book-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-book-reservation/internal/infrastructure/auth"
)

// newTestEcho はテスト用のEchoインスタンスを作成する
func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = api.NewValidator()
	return e
}

// withIdentity は認証済みの顧客としてコンテキストを設定する
func withIdentity(c echo.Context, customerID int64, role string) {
	middleware.SetIdentity(c, &auth.Identity{CustomerID: customerID, Role: role})
}
