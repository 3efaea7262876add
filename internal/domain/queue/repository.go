package queue

import (
	"context"

	"github.com/sanosuguru/go-book-reservation/internal/domain/transaction"
)

// Repository は書籍ごとの待ち行列のインターフェース
// 行列はストレージに永続化され、並び順は (tier_rank, enqueued_at, id) の
// 昇順で導出する。キーが存在しないことは空の行列と等価
type Repository interface {
	// Enqueue はエントリを追加し、挿入後の1始まりの順位を返す（トランザクション必須）
	Enqueue(ctx context.Context, tx transaction.Tx, e *Entry) (int, error)

	// PositionOf は顧客の現在順位を返す（並んでいなければ nil）
	PositionOf(ctx context.Context, bookID, customerID int64) (*int, error)

	// PopHead は先頭エントリをロックして取り出し、行を削除する（トランザクション必須）
	// 行列が空の場合は nil を返す
	PopHead(ctx context.Context, tx transaction.Tx, bookID int64) (*Entry, error)

	// ListByBook は書籍の待ち行列を並び順で返す
	ListByBook(ctx context.Context, bookID int64) ([]*Entry, error)

	// CountByBook は書籍の待ち行列の長さを返す
	CountByBook(ctx context.Context, bookID int64) (int, error)
}
