package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
	"github.com/sanosuguru/go-book-reservation/internal/application"
	"github.com/sanosuguru/go-book-reservation/internal/domain/book"
)

type BookHandler struct {
	service BookServiceInterface
}

func NewBookHandler(s BookServiceInterface) *BookHandler {
	return &BookHandler{service: s}
}

type CreateBookRequest struct {
	Title       string `json:"title" validate:"required"`
	ISBN        string `json:"isbn" validate:"required"`
	Price       int64  `json:"price" validate:"min=0"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	Units       int    `json:"units" validate:"min=0"`
}

type BookResponse struct {
	BookID      int64  `json:"book_id"`
	Title       string `json:"title"`
	ISBN        string `json:"isbn"`
	Price       int64  `json:"price"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	Units       int    `json:"units"`
}

func toBookResponse(b *book.Book) BookResponse {
	return BookResponse{
		BookID: b.ID, Title: b.Title, ISBN: b.ISBN,
		Price: b.Price, Genre: b.Genre, Description: b.Description,
		Units: b.Units,
	}
}

// Create godoc
// @Summary 書籍を登録
// @Tags books
// @Accept json
// @Produce json
// @Param request body CreateBookRequest true "書籍情報"
// @Success 201 {object} BookResponse
// @Failure 400 {object} api.ErrorResponse "ISBN重複"
// @Failure 403 {object} api.ErrorResponse
// @Router /admin/books [post]
func (h *BookHandler) Create(c echo.Context) error {
	var req CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return apperror.InvalidRequest("無効なリクエストです")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	b, err := h.service.CreateBook(c.Request().Context(), application.CreateBookInput{
		Title:       req.Title,
		ISBN:        req.ISBN,
		Price:       req.Price,
		Genre:       req.Genre,
		Description: req.Description,
		Units:       req.Units,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBookResponse(b))
}

// List godoc
// @Summary 書籍一覧を取得
// @Tags books
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookResponse
// @Router /books [get]
func (h *BookHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	books, err := h.service.ListBooks(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	resp := make([]BookResponse, len(books))
	for i, b := range books {
		resp[i] = toBookResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary 書籍を取得
// @Tags books
// @Produce json
// @Param id path int true "書籍ID"
// @Success 200 {object} BookResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /books/{id} [get]
func (h *BookHandler) GetByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperror.InvalidRequest("書籍IDが不正です")
	}

	b, err := h.service.GetBook(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookResponse(b))
}

// Availability godoc
// @Summary 貸出可能冊数を取得
// @Tags books
// @Produce json
// @Param id path int true "書籍ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} api.ErrorResponse
// @Router /books/{id}/availability [get]
func (h *BookHandler) Availability(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperror.InvalidRequest("書籍IDが不正です")
	}

	units, err := h.service.AvailableUnits(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"book_id":         id,
		"available_units": units,
	})
}
