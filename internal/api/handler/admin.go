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

type AdminHandler struct {
	admin        AdminServiceInterface
	reservations ReservationServiceInterface
}

func NewAdminHandler(as AdminServiceInterface, rs ReservationServiceInterface) *AdminHandler {
	return &AdminHandler{admin: as, reservations: rs}
}

type BookStatusResponse struct {
	Book               BookResponse          `json:"book"`
	ActiveReservations []ReservationResponse `json:"active_reservations"`
	WaitingList        []QueueEntryResponse  `json:"waiting_list"`
}

type QueueEntryResponse struct {
	CustomerID int64     `json:"customer_id"`
	Days       int       `json:"days"`
	TierRank   int       `json:"tier_rank"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func toBookStatusResponse(status *application.BookStatus) BookStatusResponse {
	resp := BookStatusResponse{
		Book:               toBookResponse(status.Book),
		ActiveReservations: make([]ReservationResponse, len(status.ActiveReservations)),
		WaitingList:        make([]QueueEntryResponse, len(status.WaitingList)),
	}
	for i, r := range status.ActiveReservations {
		r := r
		resp.ActiveReservations[i] = ReservationResponse{
			ReservationID: &r.ID,
			BookID:        r.BookID,
			CustomerID:    r.CustomerID,
			StartTime:     &r.StartTime,
			EndTime:       &r.EndTime,
			Price:         &r.Price,
			Status:        string(r.Status),
		}
	}
	for i, e := range status.WaitingList {
		resp.WaitingList[i] = QueueEntryResponse{
			CustomerID: e.CustomerID,
			Days:       e.Days,
			TierRank:   e.TierRank,
			EnqueuedAt: e.EnqueuedAt,
		}
	}
	return resp
}

// EndReservation godoc
// @Summary 予約を強制終了
// @Description 予約を早期終了し、在庫を返却して待ち行列から繰上げを行います
// @Tags admin
// @Produce json
// @Param id path int true "予約ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} api.ErrorResponse "既に終了済み"
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /admin/reservations/{id}/end [post]
func (h *AdminHandler) EndReservation(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperror.InvalidRequest("予約IDが不正です")
	}

	if err := h.reservations.EndByAdmin(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "予約を終了しました"})
}

// BookStatus godoc
// @Summary 書籍の状態を取得
// @Description 在庫・有効な予約・待ち行列をまとめて返します
// @Tags admin
// @Produce json
// @Param id path int true "書籍ID"
// @Success 200 {object} BookStatusResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /admin/books/{id}/status [get]
func (h *AdminHandler) BookStatus(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperror.InvalidRequest("書籍IDが不正です")
	}

	status, err := h.admin.GetBookStatus(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookStatusResponse(status))
}

// RevokeToken godoc
// @Summary 顧客のトークンを失効
// @Tags admin
// @Produce json
// @Param customer_id path int true "顧客ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} api.ErrorResponse "対象が管理者"
// @Failure 404 {object} api.ErrorResponse
// @Router /admin/revoke-token/{customer_id} [post]
func (h *AdminHandler) RevokeToken(c echo.Context) error {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		return apperror.AuthenticationFailed("認証が必要です")
	}

	targetID, err := strconv.ParseInt(c.Param("customer_id"), 10, 64)
	if err != nil {
		return apperror.InvalidRequest("顧客IDが不正です")
	}

	if err := h.admin.RevokeTokens(c.Request().Context(), identity.CustomerID, targetID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "トークンを失効しました"})
}
