package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
	"github.com/sanosuguru/go-book-reservation/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Path      string                 `json:"path"`
	Timestamp string                 `json:"timestamp"`
}

// statusOf はエラー種別をHTTPステータスへ網羅的に対応付ける
func statusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.KindAuthenticationFailed:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindInvalidRequest, apperror.KindInsufficientFunds, apperror.KindAlreadyEnded:
		return http.StatusBadRequest
	case apperror.KindDatabase:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
// apperror の各種別は対応するステータスと理由で返し、ストレージ層の失敗だけは
// 文脈付きでログに残して内部詳細を漏らさない汎用メッセージで返す
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code    = http.StatusInternalServerError
		message = "内部サーバーエラー"
		details map[string]interface{}
	)

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		code = statusOf(appErr.Kind)
		if appErr.Kind == apperror.KindDatabase {
			logger.Error("ストレージ層エラー",
				zap.String("path", c.Request().URL.Path),
				zap.String("method", c.Request().Method),
				zap.Any("details", appErr.Details),
				zap.Error(err),
			)
		} else {
			message = appErr.Message
			details = appErr.Details
		}
	} else if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}

	// 予期しない 5xx はログを出力
	if code >= 500 && appErr == nil {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	// JSONレスポンスを返す
	if err := c.JSON(code, ErrorResponse{
		Error:     true,
		Message:   message,
		Details:   details,
		Path:      c.Request().URL.Path,
		Timestamp: time.Now().Format(time.RFC3339),
	}); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
