package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-book-reservation/internal/domain/book"
	"github.com/sanosuguru/go-book-reservation/internal/domain/transaction"
)

type bookRow struct {
	ID          int64     `db:"book_id"`
	Title       string    `db:"title"`
	ISBN        string    `db:"isbn"`
	Price       int64     `db:"price"`
	Genre       string    `db:"genre"`
	Description string    `db:"description"`
	Units       int       `db:"units"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *bookRow) toEntity() *book.Book {
	return &book.Book{
		ID: r.ID, Title: r.Title, ISBN: r.ISBN,
		Price: r.Price, Genre: r.Genre, Description: r.Description,
		Units: r.Units, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type BookRepository struct{ db *sqlx.DB }

func NewBookRepository(db *sqlx.DB) *BookRepository { return &BookRepository{db: db} }

func (r *BookRepository) Create(ctx context.Context, b *book.Book) error {
	query := `INSERT INTO books (title, isbn, price, genre, description, units, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING book_id`
	if err := r.db.QueryRowContext(ctx, query, b.Title, b.ISBN, b.Price, b.Genre, b.Description, b.Units, b.CreatedAt, b.UpdatedAt).Scan(&b.ID); err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return book.ErrISBNAlreadyExists
		}
		return fmt.Errorf("書籍の作成に失敗: %w", err)
	}
	return nil
}

func (r *BookRepository) GetByID(ctx context.Context, id int64) (*book.Book, error) {
	var row bookRow
	query := `SELECT book_id, title, isbn, price, genre, description, units, created_at, updated_at FROM books WHERE book_id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, book.ErrBookNotFound
		}
		return nil, fmt.Errorf("書籍の取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *BookRepository) List(ctx context.Context, limit, offset int) ([]*book.Book, error) {
	var rows []bookRow
	query := `SELECT book_id, title, isbn, price, genre, description, units, created_at, updated_at FROM books ORDER BY title LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("書籍一覧の取得に失敗: %w", err)
	}
	books := make([]*book.Book, len(rows))
	for i, row := range rows {
		books[i] = row.toEntity()
	}
	return books, nil
}

// GetForUpdate は書籍行を FOR UPDATE でロックして取得する
// 同一書籍の在庫判断（即時確定か待ち行列か）をここで直列化する
func (r *BookRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id int64) (*book.Book, error) {
	sqlxTx := UnwrapTx(tx)
	var row bookRow
	query := `SELECT book_id, title, isbn, price, genre, description, units, created_at, updated_at FROM books WHERE book_id = $1 FOR UPDATE`
	if err := sqlxTx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, book.ErrBookNotFound
		}
		return nil, fmt.Errorf("書籍のロック取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *BookRepository) DecrementUnits(ctx context.Context, tx transaction.Tx, id int64) error {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE books SET units = units - 1, updated_at = NOW() WHERE book_id = $1 AND units > 0`
	result, err := sqlxTx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("在庫の減算に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return book.ErrNoAvailableUnits
	}
	return nil
}

func (r *BookRepository) IncrementUnits(ctx context.Context, tx transaction.Tx, id int64) error {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE books SET units = units + 1, updated_at = NOW() WHERE book_id = $1`
	result, err := sqlxTx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("在庫の返却に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return book.ErrBookNotFound
	}
	return nil
}

var _ book.Repository = (*BookRepository)(nil)
