package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
	"github.com/sanosuguru/go-book-reservation/internal/application"
	"github.com/sanosuguru/go-book-reservation/internal/domain/book"
)

// MockBookService はBookServiceInterfaceのモック
type MockBookService struct {
	mock.Mock
}

func (m *MockBookService) CreateBook(ctx context.Context, input application.CreateBookInput) (*book.Book, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*book.Book), args.Error(1)
}

func (m *MockBookService) GetBook(ctx context.Context, id int64) (*book.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*book.Book), args.Error(1)
}

func (m *MockBookService) ListBooks(ctx context.Context, limit, offset int) ([]*book.Book, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*book.Book), args.Error(1)
}

func (m *MockBookService) AvailableUnits(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func TestBookHandler_Create(t *testing.T) {
	e := newTestEcho()

	t.Run("書籍を登録できる", func(t *testing.T) {
		mockService := new(MockBookService)
		created := &book.Book{ID: 10, Title: "こころ", ISBN: "978-4-10-101013-3", Price: 500, Units: 2}
		mockService.On("CreateBook", mock.Anything, mock.AnythingOfType("application.CreateBookInput")).Return(created, nil)

		handler := NewBookHandler(mockService)

		reqBody := `{"title": "こころ", "isbn": "978-4-10-101013-3", "price": 500, "units": 2}`
		req := httptest.NewRequest(http.MethodPost, "/admin/books", strings.NewReader(reqBody))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp BookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(10), resp.BookID)
		assert.Equal(t, 2, resp.Units)
	})

	t.Run("タイトルの欠落はバリデーションエラー", func(t *testing.T) {
		handler := NewBookHandler(new(MockBookService))

		req := httptest.NewRequest(http.MethodPost, "/admin/books", strings.NewReader(`{"isbn": "978-4-10-101013-3"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidRequest))
	})

	t.Run("ISBN重複は不正リクエスト", func(t *testing.T) {
		mockService := new(MockBookService)
		mockService.On("CreateBook", mock.Anything, mock.AnythingOfType("application.CreateBookInput")).
			Return(nil, apperror.InvalidRequest("このISBNの書籍は既に登録されています"))

		handler := NewBookHandler(mockService)

		reqBody := `{"title": "こころ", "isbn": "978-4-10-101013-3", "price": 500, "units": 2}`
		req := httptest.NewRequest(http.MethodPost, "/admin/books", strings.NewReader(reqBody))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidRequest))
	})
}

func TestBookHandler_List(t *testing.T) {
	e := newTestEcho()

	t.Run("一覧を返す", func(t *testing.T) {
		mockService := new(MockBookService)
		books := []*book.Book{
			{ID: 1, Title: "吾輩は猫である"},
			{ID: 2, Title: "三四郎"},
		}
		mockService.On("ListBooks", mock.Anything, 0, 0).Return(books, nil)

		handler := NewBookHandler(mockService)

		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.List(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp []BookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp, 2)
	})

	t.Run("limitとoffsetを渡せる", func(t *testing.T) {
		mockService := new(MockBookService)
		mockService.On("ListBooks", mock.Anything, 5, 10).Return([]*book.Book{}, nil)

		handler := NewBookHandler(mockService)

		req := httptest.NewRequest(http.MethodGet, "/books?limit=5&offset=10", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.List(c)
		require.NoError(t, err)
		mockService.AssertExpectations(t)
	})
}

func TestBookHandler_GetByID(t *testing.T) {
	e := newTestEcho()

	t.Run("存在しない書籍", func(t *testing.T) {
		mockService := new(MockBookService)
		mockService.On("GetBook", mock.Anything, int64(404)).Return(nil, apperror.NotFound("書籍が見つかりません"))

		handler := NewBookHandler(mockService)

		req := httptest.NewRequest(http.MethodGet, "/books/404", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("404")

		err := handler.GetByID(c)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	})
}

func TestBookHandler_Availability(t *testing.T) {
	e := newTestEcho()

	t.Run("貸出可能冊数を返す", func(t *testing.T) {
		mockService := new(MockBookService)
		mockService.On("AvailableUnits", mock.Anything, int64(10)).Return(2, nil)

		handler := NewBookHandler(mockService)

		req := httptest.NewRequest(http.MethodGet, "/books/10/availability", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("10")

		err := handler.Availability(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, float64(10), resp["book_id"])
		assert.Equal(t, float64(2), resp["available_units"])
	})

	t.Run("不正な書籍ID", func(t *testing.T) {
		mockService := new(MockBookService)
		handler := NewBookHandler(mockService)

		req := httptest.NewRequest(http.MethodGet, "/books/abc/availability", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("abc")

		err := handler.Availability(c)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidRequest))
	})
}
