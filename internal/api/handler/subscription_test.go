package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
	"github.com/sanosuguru/go-book-reservation/internal/domain/customer"
)

// MockSubscriptionService はSubscriptionServiceInterfaceのモック
type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) Upgrade(ctx context.Context, customerID int64, tierName string, months int) (*customer.Customer, error) {
	args := m.Called(ctx, customerID, tierName, months)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockSubscriptionService) TopUp(ctx context.Context, customerID int64, amount int64) (*customer.Customer, error) {
	args := m.Called(ctx, customerID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockSubscriptionService) Info(ctx context.Context, customerID int64) (*customer.Customer, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockSubscriptionService) Balance(ctx context.Context, customerID int64) (int64, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Error(1)
}

func TestSubscriptionHandler_Upgrade(t *testing.T) {
	e := newTestEcho()
	end := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	t.Run("アップグレードできる", func(t *testing.T) {
		mockService := new(MockSubscriptionService)
		upgraded := &customer.Customer{ID: 1, Username: "taro", Tier: customer.TierPlus, SubscriptionEndsAt: &end, Wallet: 50000}
		mockService.On("Upgrade", mock.Anything, int64(1), "plus", 1).Return(upgraded, nil)

		handler := NewSubscriptionHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/subscription/upgrade", strings.NewReader(`{"model": "plus"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		withIdentity(c, 1, "customer")

		err := handler.Upgrade(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp CustomerResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "plus", resp.SubscriptionModel)
		assert.Equal(t, int64(50000), resp.Wallet)
	})

	t.Run("月数を指定できる", func(t *testing.T) {
		mockService := new(MockSubscriptionService)
		upgraded := &customer.Customer{ID: 1, Tier: customer.TierPremium, SubscriptionEndsAt: &end}
		mockService.On("Upgrade", mock.Anything, int64(1), "premium", 3).Return(upgraded, nil)

		handler := NewSubscriptionHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/subscription/upgrade", strings.NewReader(`{"model": "premium", "months": 3}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		withIdentity(c, 1, "customer")

		err := handler.Upgrade(c)
		require.NoError(t, err)
		mockService.AssertExpectations(t)
	})

	t.Run("modelの欠落はバリデーションエラー", func(t *testing.T) {
		handler := NewSubscriptionHandler(new(MockSubscriptionService))

		req := httptest.NewRequest(http.MethodPost, "/subscription/upgrade", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		withIdentity(c, 1, "customer")

		err := handler.Upgrade(c)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidRequest))
	})

	t.Run("残高不足はそのまま返す", func(t *testing.T) {
		mockService := new(MockSubscriptionService)
		mockService.On("Upgrade", mock.Anything, int64(1), "plus", 1).
			Return(nil, apperror.InsufficientFunds(50000, 100))

		handler := NewSubscriptionHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/subscription/upgrade", strings.NewReader(`{"model": "plus"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		withIdentity(c, 1, "customer")

		err := handler.Upgrade(c)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindInsufficientFunds))
	})
}

func TestSubscriptionHandler_TopUp(t *testing.T) {
	e := newTestEcho()

	t.Run("残高を加算できる", func(t *testing.T) {
		mockService := new(MockSubscriptionService)
		updated := &customer.Customer{ID: 1, Tier: customer.TierFree, Wallet: 8000}
		mockService.On("TopUp", mock.Anything, int64(1), int64(5000)).Return(updated, nil)

		handler := NewSubscriptionHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/wallet/topup", strings.NewReader(`{"amount": 5000}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		withIdentity(c, 1, "customer")

		err := handler.TopUp(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp CustomerResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(8000), resp.Wallet)
	})

	t.Run("amountの欠落はバリデーションエラー", func(t *testing.T) {
		handler := NewSubscriptionHandler(new(MockSubscriptionService))

		req := httptest.NewRequest(http.MethodPost, "/wallet/topup", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		withIdentity(c, 1, "customer")

		err := handler.TopUp(c)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidRequest))
	})
}

func TestSubscriptionHandler_Balance(t *testing.T) {
	e := newTestEcho()

	mockService := new(MockSubscriptionService)
	mockService.On("Balance", mock.Anything, int64(1)).Return(int64(12345), nil)

	handler := NewSubscriptionHandler(mockService)

	req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	withIdentity(c, 1, "customer")

	err := handler.Balance(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(12345), resp["balance"])
}
