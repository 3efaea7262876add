package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-book-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-book-reservation/internal/apperror"
	"github.com/sanosuguru/go-book-reservation/internal/application"
)

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type CreateReservationRequest struct {
	BookID int64 `json:"book_id" validate:"required"`
	Days   int   `json:"days" validate:"required,min=1"`
}

type ReservationResponse struct {
	ReservationID *int64     `json:"reservation_id"`
	BookID        int64      `json:"book_id"`
	CustomerID    int64      `json:"customer_id"`
	StartTime     *time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	Price         *int64     `json:"price"`
	Status        string     `json:"status"`
	QueuePosition *int       `json:"queue_position,omitempty"`
}

func toReserveResponse(bookID, customerID int64, result *application.ReserveResult) ReservationResponse {
	resp := ReservationResponse{
		BookID:     bookID,
		CustomerID: customerID,
		Status:     string(result.Status),
	}
	if result.Reservation != nil {
		r := result.Reservation
		resp.ReservationID = &r.ID
		resp.StartTime = &r.StartTime
		resp.EndTime = &r.EndTime
		resp.Price = &r.Price
	}
	if result.Status == application.ReserveStatusQueued {
		pos := result.QueuePosition
		resp.QueuePosition = &pos
	}
	return resp
}

// Create godoc
// @Summary 予約を作成
// @Description 在庫があれば即時確定、なければ待ち行列に追加します
// @Tags reservations
// @Accept json
// @Produce json
// @Param request body CreateReservationRequest true "予約情報"
// @Success 201 {object} ReservationResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 403 {object} api.ErrorResponse "無料プランは予約不可"
// @Failure 404 {object} api.ErrorResponse
// @Router /reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		return apperror.AuthenticationFailed("認証が必要です")
	}

	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return apperror.InvalidRequest("無効なリクエストです")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.service.Reserve(c.Request().Context(), identity.CustomerID, req.BookID, req.Days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReserveResponse(req.BookID, identity.CustomerID, result))
}

// GetByID godoc
// @Summary 予約を取得
// @Tags reservations
// @Produce json
// @Param id path int true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperror.InvalidRequest("予約IDが不正です")
	}

	r, err := h.service.GetReservation(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ReservationResponse{
		ReservationID: &r.ID,
		BookID:        r.BookID,
		CustomerID:    r.CustomerID,
		StartTime:     &r.StartTime,
		EndTime:       &r.EndTime,
		Price:         &r.Price,
		Status:        string(r.Status),
	})
}

// QueuePosition godoc
// @Summary 待ち行列での順位を取得
// @Tags reservations
// @Produce json
// @Param book_id path int true "書籍ID"
// @Success 200 {object} map[string]interface{}
// @Router /books/{book_id}/queue-position [get]
func (h *ReservationHandler) QueuePosition(c echo.Context) error {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		return apperror.AuthenticationFailed("認証が必要です")
	}

	bookID, err := strconv.ParseInt(c.Param("book_id"), 10, 64)
	if err != nil {
		return apperror.InvalidRequest("書籍IDが不正です")
	}

	pos, err := h.service.QueuePosition(c.Request().Context(), bookID, identity.CustomerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"book_id":  bookID,
		"position": pos,
	})
}
