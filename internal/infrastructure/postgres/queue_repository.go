package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-book-reservation/internal/domain/queue"
	"github.com/sanosuguru/go-book-reservation/internal/domain/transaction"
)

type queueEntryRow struct {
	ID         int64     `db:"queue_entry_id"`
	BookID     int64     `db:"book_id"`
	CustomerID int64     `db:"customer_id"`
	Days       int       `db:"days"`
	TierRank   int       `db:"tier_rank"`
	EnqueuedAt time.Time `db:"enqueued_at"`
}

func (r *queueEntryRow) toEntity() *queue.Entry {
	return &queue.Entry{
		ID: r.ID, BookID: r.BookID, CustomerID: r.CustomerID,
		Days: r.Days, TierRank: r.TierRank, EnqueuedAt: r.EnqueuedAt,
	}
}

const queueEntryColumns = `queue_entry_id, book_id, customer_id, days, tier_rank, enqueued_at`

// 待ち行列の並び順: premium（rank 0）が先、同一 rank 内はエンキュー時刻の昇順
const queueOrder = `tier_rank ASC, enqueued_at ASC, queue_entry_id ASC`

// QueueRepository は書籍ごとの待ち行列をストレージ上の行として管理する
// 順位はインメモリの構造ではなく並び順クエリから導出するため、
// 再起動や複数インスタンスでも一貫する
type QueueRepository struct{ db *sqlx.DB }

func NewQueueRepository(db *sqlx.DB) *QueueRepository { return &QueueRepository{db: db} }

func (r *QueueRepository) Enqueue(ctx context.Context, tx transaction.Tx, e *queue.Entry) (int, error) {
	sqlxTx := UnwrapTx(tx)
	query := `INSERT INTO reservation_queue (book_id, customer_id, days, tier_rank, enqueued_at) VALUES ($1, $2, $3, $4, $5) RETURNING queue_entry_id`
	if err := sqlxTx.QueryRowContext(ctx, query, e.BookID, e.CustomerID, e.Days, e.TierRank, e.EnqueuedAt).Scan(&e.ID); err != nil {
		return 0, fmt.Errorf("待ち行列への追加に失敗: %w", err)
	}

	var position int
	posQuery := `SELECT COUNT(*) + 1 FROM reservation_queue WHERE book_id = $1 AND (tier_rank, enqueued_at, queue_entry_id) < ($2, $3, $4)`
	if err := sqlxTx.GetContext(ctx, &position, posQuery, e.BookID, e.TierRank, e.EnqueuedAt, e.ID); err != nil {
		return 0, fmt.Errorf("待ち順位の取得に失敗: %w", err)
	}
	return position, nil
}

func (r *QueueRepository) PositionOf(ctx context.Context, bookID, customerID int64) (*int, error) {
	var row queueEntryRow
	query := `SELECT ` + queueEntryColumns + ` FROM reservation_queue WHERE book_id = $1 AND customer_id = $2 ORDER BY ` + queueOrder + ` LIMIT 1`
	if err := r.db.GetContext(ctx, &row, query, bookID, customerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("待ち行列エントリの取得に失敗: %w", err)
	}

	var position int
	posQuery := `SELECT COUNT(*) + 1 FROM reservation_queue WHERE book_id = $1 AND (tier_rank, enqueued_at, queue_entry_id) < ($2, $3, $4)`
	if err := r.db.GetContext(ctx, &position, posQuery, bookID, row.TierRank, row.EnqueuedAt, row.ID); err != nil {
		return nil, fmt.Errorf("待ち順位の取得に失敗: %w", err)
	}
	return &position, nil
}

// PopHead は先頭エントリをロック付きで取り出し、行を削除する
// SKIP LOCKED により並行する繰上げ同士が同じエントリを取り合わない
func (r *QueueRepository) PopHead(ctx context.Context, tx transaction.Tx, bookID int64) (*queue.Entry, error) {
	sqlxTx := UnwrapTx(tx)
	var row queueEntryRow
	query := `SELECT ` + queueEntryColumns + ` FROM reservation_queue WHERE book_id = $1 ORDER BY ` + queueOrder + ` LIMIT 1 FOR UPDATE SKIP LOCKED`
	if err := sqlxTx.GetContext(ctx, &row, query, bookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("待ち行列先頭の取得に失敗: %w", err)
	}

	if _, err := sqlxTx.ExecContext(ctx, `DELETE FROM reservation_queue WHERE queue_entry_id = $1`, row.ID); err != nil {
		return nil, fmt.Errorf("待ち行列エントリの削除に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *QueueRepository) ListByBook(ctx context.Context, bookID int64) ([]*queue.Entry, error) {
	var rows []queueEntryRow
	query := `SELECT ` + queueEntryColumns + ` FROM reservation_queue WHERE book_id = $1 ORDER BY ` + queueOrder
	if err := r.db.SelectContext(ctx, &rows, query, bookID); err != nil {
		return nil, fmt.Errorf("待ち行列の取得に失敗: %w", err)
	}
	entries := make([]*queue.Entry, len(rows))
	for i, row := range rows {
		entries[i] = row.toEntity()
	}
	return entries, nil
}

func (r *QueueRepository) CountByBook(ctx context.Context, bookID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reservation_queue WHERE book_id = $1`, bookID); err != nil {
		return 0, fmt.Errorf("待ち行列の長さ取得に失敗: %w", err)
	}
	return count, nil
}

var _ queue.Repository = (*QueueRepository)(nil)
