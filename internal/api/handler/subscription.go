package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-book-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-book-reservation/internal/apperror"
	"github.com/sanosuguru/go-book-reservation/internal/domain/customer"
)

type SubscriptionHandler struct {
	service SubscriptionServiceInterface
}

func NewSubscriptionHandler(s SubscriptionServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{service: s}
}

type UpgradeSubscriptionRequest struct {
	Model  string `json:"model" validate:"required"`
	Months int    `json:"months" validate:"omitempty,min=1"`
}

type TopUpRequest struct {
	Amount int64 `json:"amount" validate:"required"`
}

type CustomerResponse struct {
	CustomerID         int64      `json:"customer_id"`
	Username           string     `json:"username"`
	SubscriptionModel  string     `json:"subscription_model"`
	SubscriptionEndsAt *time.Time `json:"subscription_end_time,omitempty"`
	Wallet             int64      `json:"wallet"`
}

func toCustomerResponse(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		CustomerID:         c.ID,
		Username:           c.Username,
		SubscriptionModel:  string(c.Tier),
		SubscriptionEndsAt: c.SubscriptionEndsAt,
		Wallet:             c.Wallet,
	}
}

// Upgrade godoc
// @Summary サブスクリプションをアップグレード・延長
// @Tags subscription
// @Accept json
// @Produce json
// @Param request body UpgradeSubscriptionRequest true "アップグレード情報"
// @Success 200 {object} CustomerResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /subscription/upgrade [post]
func (h *SubscriptionHandler) Upgrade(c echo.Context) error {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		return apperror.AuthenticationFailed("認証が必要です")
	}

	var req UpgradeSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return apperror.InvalidRequest("無効なリクエストです")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Months == 0 {
		req.Months = 1
	}

	updated, err := h.service.Upgrade(c.Request().Context(), identity.CustomerID, req.Model, req.Months)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCustomerResponse(updated))
}

// Info godoc
// @Summary サブスクリプション情報を取得
// @Tags subscription
// @Produce json
// @Success 200 {object} CustomerResponse
// @Router /subscription [get]
func (h *SubscriptionHandler) Info(c echo.Context) error {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		return apperror.AuthenticationFailed("認証が必要です")
	}

	cust, err := h.service.Info(c.Request().Context(), identity.CustomerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCustomerResponse(cust))
}

// TopUp godoc
// @Summary ウォレットをチャージ
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body TopUpRequest true "チャージ金額"
// @Success 200 {object} CustomerResponse
// @Failure 400 {object} api.ErrorResponse "金額が0以下"
// @Router /wallet/topup [post]
func (h *SubscriptionHandler) TopUp(c echo.Context) error {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		return apperror.AuthenticationFailed("認証が必要です")
	}

	var req TopUpRequest
	if err := c.Bind(&req); err != nil {
		return apperror.InvalidRequest("無効なリクエストです")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	updated, err := h.service.TopUp(c.Request().Context(), identity.CustomerID, req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCustomerResponse(updated))
}

// Balance godoc
// @Summary ウォレット残高を取得
// @Tags wallet
// @Produce json
// @Success 200 {object} map[string]int64
// @Router /wallet [get]
func (h *SubscriptionHandler) Balance(c echo.Context) error {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		return apperror.AuthenticationFailed("認証が必要です")
	}

	balance, err := h.service.Balance(c.Request().Context(), identity.CustomerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"balance": balance})
}
