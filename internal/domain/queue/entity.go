package queue

import (
	"time"

	"github.com/sanosuguru/go-book-reservation/internal/domain/customer"
)

// Entry は在庫切れ書籍への待ち行列レコードを表す
// TierRank はエンキュー時点の階層のスナップショットで、以後の階層変更は
// 並び順に影響しない
type Entry struct {
	ID         int64
	BookID     int64
	CustomerID int64
	Days       int
	TierRank   int
	EnqueuedAt time.Time
}

// NewEntry は新しい待ち行列エントリを作成する
func NewEntry(bookID, customerID int64, days int, tier customer.Tier, now time.Time) *Entry {
	return &Entry{
		BookID:     bookID,
		CustomerID: customerID,
		Days:       days,
		TierRank:   tier.QueueRank(),
		EnqueuedAt: now,
	}
}

// Less は待ち行列の並び順を定義する
// premium（rank 0）が先、同一 rank 内はエンキュー時刻の昇順
func (e *Entry) Less(other *Entry) bool {
	if e.TierRank != other.TierRank {
		return e.TierRank < other.TierRank
	}
	if !e.EnqueuedAt.Equal(other.EnqueuedAt) {
		return e.EnqueuedAt.Before(other.EnqueuedAt)
	}
	return e.ID < other.ID
}
