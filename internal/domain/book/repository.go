package book

import (
	"context"

	"github.com/sanosuguru/go-book-reservation/internal/domain/transaction"
)

// Repository は書籍リポジトリのインターフェース
type Repository interface {
	// Create は新しい書籍を登録する
	// ISBN 重複の場合は ErrISBNAlreadyExists を返す
	Create(ctx context.Context, b *Book) error

	// GetByID はIDから書籍を取得する
	GetByID(ctx context.Context, id int64) (*Book, error)

	// List は書籍一覧を取得する
	List(ctx context.Context, limit, offset int) ([]*Book, error)

	// GetForUpdate は書籍行をロックして取得する（トランザクション必須）
	// 同一書籍への確定・返却判断を直列化するためのロックポイント
	GetForUpdate(ctx context.Context, tx transaction.Tx, id int64) (*Book, error)

	// DecrementUnits は在庫を1減らす（トランザクション必須）
	// 在庫が0の場合は ErrNoAvailableUnits を返す
	DecrementUnits(ctx context.Context, tx transaction.Tx, id int64) error

	// IncrementUnits は在庫を1増やす（トランザクション必須）
	IncrementUnits(ctx context.Context, tx transaction.Tx, id int64) error
}
