package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
)

func execErrorHandler(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/books/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	CustomHTTPErrorHandler(err, c)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestCustomHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "認証エラーは401",
			err:        apperror.AuthenticationFailed("トークンが無効です"),
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "トークンが無効です",
		},
		{
			name:       "権限エラーは403",
			err:        apperror.Forbidden("無料プランの顧客は予約できません"),
			wantStatus: http.StatusForbidden,
			wantMsg:    "無料プランの顧客は予約できません",
		},
		{
			name:       "未検出は404",
			err:        apperror.NotFound("書籍が見つかりません"),
			wantStatus: http.StatusNotFound,
			wantMsg:    "書籍が見つかりません",
		},
		{
			name:       "不正リクエストは400",
			err:        apperror.InvalidRequest("日数が不正です"),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "日数が不正です",
		},
		{
			name:       "残高不足は400",
			err:        apperror.InsufficientFunds(7000, 3000),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "ウォレット残高が不足しています",
		},
		{
			name:       "終了済みは400",
			err:        apperror.AlreadyEnded("この予約は既に終了しています"),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "この予約は既に終了しています",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := execErrorHandler(t, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.True(t, resp.Error)
			assert.Equal(t, tt.wantMsg, resp.Message)
			assert.Equal(t, "/api/v1/books/1", resp.Path)
		})
	}
}

func TestCustomHTTPErrorHandler_DatabaseError(t *testing.T) {
	// ストレージ層の失敗は内部詳細を漏らさない
	err := apperror.Database("予約の作成に失敗しました", errors.New("pq: connection refused"))

	rec, resp := execErrorHandler(t, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "内部サーバーエラー", resp.Message)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestCustomHTTPErrorHandler_Details(t *testing.T) {
	err := apperror.InsufficientFunds(7000, 3000)

	_, resp := execErrorHandler(t, err)

	require.NotNil(t, resp.Details)
	assert.Equal(t, float64(7000), resp.Details["required"])
	assert.Equal(t, float64(3000), resp.Details["current_balance"])
}

func TestCustomHTTPErrorHandler_EchoHTTPError(t *testing.T) {
	err := echo.NewHTTPError(http.StatusNotFound, "Not Found")

	rec, resp := execErrorHandler(t, err)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", resp.Message)
}
