package reservation

import (
	"context"
	"time"

	"github.com/sanosuguru/go-book-reservation/internal/domain/transaction"
)

// UsageHistory は料金計算に使う利用履歴のスナップショット
type UsageHistory struct {
	// 直近30日以内に end_time を迎えた予約の書籍数（重複を除く）
	BooksCompleted30d int
	// 直近60日以内に start_time を持つ予約の支払額合計
	AmountPaid60d int64
}

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, r *Reservation) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id int64) (*Reservation, error)

	// End は end_time と status の遷移を保存する（トランザクション必須）
	End(ctx context.Context, tx transaction.Tx, r *Reservation) error

	// CountLiveByCustomer は顧客の有効な予約数（end_time > now）を返す
	CountLiveByCustomer(ctx context.Context, customerID int64, now time.Time) (int, error)

	// UsageHistory は料金計算用の履歴スナップショットを取得する
	UsageHistory(ctx context.Context, customerID int64, now time.Time) (UsageHistory, error)

	// ListActiveByBook は書籍の有効な予約一覧を開始時刻順に返す
	ListActiveByBook(ctx context.Context, bookID int64, now time.Time) ([]*Reservation, error)

	// ListDueForExpiry は end_time を過ぎてもまだ active な予約を返す
	ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*Reservation, error)
}
