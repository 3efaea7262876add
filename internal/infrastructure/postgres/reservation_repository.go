package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-book-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-book-reservation/internal/domain/transaction"
)

type reservationRow struct {
	ID         int64     `db:"reservation_id"`
	CustomerID int64     `db:"customer_id"`
	BookID     int64     `db:"book_id"`
	StartTime  time.Time `db:"start_time"`
	EndTime    time.Time `db:"end_time"`
	Price      int64     `db:"price"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r *reservationRow) toEntity() *reservation.Reservation {
	return &reservation.Reservation{
		ID: r.ID, CustomerID: r.CustomerID, BookID: r.BookID,
		StartTime: r.StartTime, EndTime: r.EndTime,
		Price: r.Price, Status: reservation.Status(r.Status),
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const reservationColumns = `reservation_id, customer_id, book_id, start_time, end_time, price, status, created_at, updated_at`

type ReservationRepository struct{ db *sqlx.DB }

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlxTx := UnwrapTx(tx)
	query := `INSERT INTO reservations (customer_id, book_id, start_time, end_time, price, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING reservation_id`
	if err := sqlxTx.QueryRowContext(ctx, query, res.CustomerID, res.BookID, res.StartTime, res.EndTime, res.Price, string(res.Status), res.CreatedAt, res.UpdatedAt).Scan(&res.ID); err != nil {
		return fmt.Errorf("予約の作成に失敗: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*reservation.Reservation, error) {
	var row reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE reservation_id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約の取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// End は予約を終了状態に更新する
// status 述語により、別トランザクションが先に終了させた予約には効かない。
// 在庫返却とセットで呼ばれるため、負けた側が二重に返却しないことをここで保証する
func (r *ReservationRepository) End(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE reservations SET end_time = $1, status = $2, updated_at = $3 WHERE reservation_id = $4 AND status = 'active'`
	result, err := sqlxTx.ExecContext(ctx, query, res.EndTime, string(res.Status), res.UpdatedAt, res.ID)
	if err != nil {
		return fmt.Errorf("予約の終了保存に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return reservation.ErrAlreadyEnded
	}
	return nil
}

func (r *ReservationRepository) CountLiveByCustomer(ctx context.Context, customerID int64, now time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM reservations WHERE customer_id = $1 AND end_time > $2`
	if err := r.db.GetContext(ctx, &count, query, customerID, now); err != nil {
		return 0, fmt.Errorf("有効な予約数の取得に失敗: %w", err)
	}
	return count, nil
}

// UsageHistory は料金計算用の履歴スナップショットを取得する
// 読了冊数は直近30日に end_time を迎えた予約の DISTINCT book_id 数、
// 支払額は直近60日に start_time を持つ予約の price 合計
func (r *ReservationRepository) UsageHistory(ctx context.Context, customerID int64, now time.Time) (reservation.UsageHistory, error) {
	var history reservation.UsageHistory

	booksQuery := `SELECT COUNT(DISTINCT book_id) FROM reservations WHERE customer_id = $1 AND end_time BETWEEN $2 AND $3`
	if err := r.db.GetContext(ctx, &history.BooksCompleted30d, booksQuery, customerID, now.AddDate(0, 0, -30), now); err != nil {
		return reservation.UsageHistory{}, fmt.Errorf("読了冊数の取得に失敗: %w", err)
	}

	paidQuery := `SELECT COALESCE(SUM(price), 0) FROM reservations WHERE customer_id = $1 AND start_time BETWEEN $2 AND $3`
	if err := r.db.GetContext(ctx, &history.AmountPaid60d, paidQuery, customerID, now.AddDate(0, 0, -60), now); err != nil {
		return reservation.UsageHistory{}, fmt.Errorf("支払額合計の取得に失敗: %w", err)
	}

	return history, nil
}

func (r *ReservationRepository) ListActiveByBook(ctx context.Context, bookID int64, now time.Time) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE book_id = $1 AND end_time > $2 ORDER BY start_time`
	if err := r.db.SelectContext(ctx, &rows, query, bookID, now); err != nil {
		return nil, fmt.Errorf("有効な予約一覧の取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result, nil
}

func (r *ReservationRepository) ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE status = 'active' AND end_time <= $1 ORDER BY end_time LIMIT $2`
	if err := r.db.SelectContext(ctx, &rows, query, now, limit); err != nil {
		return nil, fmt.Errorf("満了予約の取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result, nil
}

var _ reservation.Repository = (*ReservationRepository)(nil)
