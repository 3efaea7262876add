package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger は依存コンポーネントの疎通確認を行う
type Pinger func(ctx context.Context) error

// HealthHandler はヘルスチェックハンドラー
type HealthHandler struct {
	dbPing    Pinger
	redisPing Pinger
}

// NewHealthHandler はHealthHandlerを作成する
// 疎通確認が不要なコンポーネントには nil を渡す
func NewHealthHandler(dbPing, redisPing Pinger) *HealthHandler {
	return &HealthHandler{dbPing: dbPing, redisPing: redisPing}
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
	Timestamp  string            `json:"timestamp"`
}

// Check はヘルスチェックを行う
// @Summary ヘルスチェック
// @Description アプリケーションと依存コンポーネントの健全性を確認する
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	components := map[string]string{}

	for name, ping := range map[string]Pinger{"database": h.dbPing, "redis": h.redisPing} {
		if ping == nil {
			continue
		}
		if err := ping(ctx); err != nil {
			components[name] = "unavailable"
			status = "degraded"
		} else {
			components[name] = "ok"
		}
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, HealthResponse{
		Status:     status,
		Components: components,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
}
