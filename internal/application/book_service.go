package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
	"github.com/sanosuguru/go-book-reservation/internal/domain/book"
	redisinfra "github.com/sanosuguru/go-book-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-book-reservation/internal/pkg/logger"
)

// 在庫キャッシュのTTL。在庫変更時は予約サービスが無効化する
const unitsCacheTTL = 30 * time.Second

// BookService は書籍カタログのCRUDを提供する
// 在庫の増減は予約サービスだけが行い、ここでは初期冊数の登録のみを扱う
type BookService struct {
	books      book.Repository
	unitsCache *redisinfra.UnitsCache
}

// NewBookService は新しい BookService を作成する
// unitsCache は nil でもよい（その場合は常にストレージから読む）
func NewBookService(br book.Repository, uc *redisinfra.UnitsCache) *BookService {
	return &BookService{books: br, unitsCache: uc}
}

// CreateBookInput は書籍登録の入力
type CreateBookInput struct {
	Title       string
	ISBN        string
	Price       int64
	Genre       string
	Description string
	Units       int
}

// CreateBook は新しい書籍を登録する
func (s *BookService) CreateBook(ctx context.Context, input CreateBookInput) (*book.Book, error) {
	b := book.NewBook(input.Title, input.ISBN, input.Genre, input.Description, input.Price, input.Units)
	if err := b.Validate(); err != nil {
		return nil, apperror.Wrap(apperror.KindInvalidRequest, err.Error(), err)
	}

	if err := s.books.Create(ctx, b); err != nil {
		if err == book.ErrISBNAlreadyExists {
			return nil, apperror.InvalidRequest("このISBNの書籍は既に登録されています").
				WithDetails(map[string]interface{}{"isbn": input.ISBN})
		}
		return nil, apperror.Database("書籍の登録に失敗しました", err)
	}
	return b, nil
}

// GetBook はIDから書籍を取得する
func (s *BookService) GetBook(ctx context.Context, id int64) (*book.Book, error) {
	b, err := s.books.GetByID(ctx, id)
	if err != nil {
		if err == book.ErrBookNotFound {
			return nil, apperror.NotFound("書籍が見つかりません")
		}
		return nil, apperror.Database("書籍の取得に失敗しました", err)
	}
	return b, nil
}

// AvailableUnits は貸出可能冊数を返す
// キャッシュヒット時はストレージを読まない。在庫変更時は予約サービスが無効化する
func (s *BookService) AvailableUnits(ctx context.Context, id int64) (int, error) {
	if s.unitsCache != nil {
		units, err := s.unitsCache.GetAvailableUnits(ctx, id)
		if err == nil {
			logger.Debug("在庫キャッシュにヒット", zap.Int64("book_id", id), zap.Int("units", units))
			return units, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("在庫キャッシュの取得に失敗", zap.Int64("book_id", id), zap.Error(err))
		}
	}

	b, err := s.books.GetByID(ctx, id)
	if err != nil {
		if err == book.ErrBookNotFound {
			return 0, apperror.NotFound("書籍が見つかりません")
		}
		return 0, apperror.Database("書籍の取得に失敗しました", err)
	}

	if s.unitsCache != nil {
		if err := s.unitsCache.SetAvailableUnits(ctx, id, b.Units, unitsCacheTTL); err != nil {
			logger.Warn("在庫キャッシュの保存に失敗", zap.Int64("book_id", id), zap.Error(err))
		}
	}
	return b.Units, nil
}

// ListBooks は書籍一覧を取得する
func (s *BookService) ListBooks(ctx context.Context, limit, offset int) ([]*book.Book, error) {
	if limit <= 0 {
		limit = 20
	}
	books, err := s.books.List(ctx, limit, offset)
	if err != nil {
		return nil, apperror.Database("書籍一覧の取得に失敗しました", err)
	}
	return books, nil
}
