package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-book-reservation/internal/domain/customer"
	"github.com/sanosuguru/go-book-reservation/internal/domain/transaction"
)

type customerRow struct {
	ID                 int64      `db:"customer_id"`
	Username           string     `db:"username"`
	Email              string     `db:"email"`
	Role               string     `db:"role"`
	Tier               string     `db:"subscription_model"`
	SubscriptionEndsAt *time.Time `db:"subscription_end_time"`
	Wallet             int64      `db:"wallet"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func (r *customerRow) toEntity() *customer.Customer {
	return &customer.Customer{
		ID: r.ID, Username: r.Username, Email: r.Email,
		Role: customer.Role(r.Role), Tier: customer.Tier(r.Tier),
		SubscriptionEndsAt: r.SubscriptionEndsAt, Wallet: r.Wallet,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const customerColumns = `customer_id, username, email, role, subscription_model, subscription_end_time, wallet, created_at, updated_at`

type CustomerRepository struct{ db *sqlx.DB }

func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*customer.Customer, error) {
	var row customerRow
	query := `SELECT ` + customerColumns + ` FROM customers WHERE customer_id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customer.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("顧客の取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *CustomerRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id int64) (*customer.Customer, error) {
	sqlxTx := UnwrapTx(tx)
	var row customerRow
	query := `SELECT ` + customerColumns + ` FROM customers WHERE customer_id = $1 FOR UPDATE`
	if err := sqlxTx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customer.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("顧客のロック取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// Debit は残高確認と減算を1文で行う（compare-and-set）
// UPDATE が0行なら残高不足として扱い、同時実行下でも残高は負にならない
func (r *CustomerRepository) Debit(ctx context.Context, tx transaction.Tx, id int64, amount int64) error {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE customers SET wallet = wallet - $1, updated_at = NOW() WHERE customer_id = $2 AND wallet >= $1`
	result, err := sqlxTx.ExecContext(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("ウォレットの減算に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return customer.ErrInsufficientBalance
	}
	return nil
}

func (r *CustomerRepository) Credit(ctx context.Context, id int64, amount int64) (*customer.Customer, error) {
	var row customerRow
	query := `UPDATE customers SET wallet = wallet + $1, updated_at = NOW() WHERE customer_id = $2 RETURNING ` + customerColumns
	if err := r.db.GetContext(ctx, &row, query, amount, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customer.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("ウォレットの加算に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *CustomerRepository) UpdateSubscription(ctx context.Context, tx transaction.Tx, id int64, tier customer.Tier, endsAt time.Time, charge int64) (*customer.Customer, error) {
	sqlxTx := UnwrapTx(tx)
	var row customerRow
	query := `UPDATE customers SET subscription_model = $1, subscription_end_time = $2, wallet = wallet - $3, updated_at = NOW() WHERE customer_id = $4 AND wallet >= $3 RETURNING ` + customerColumns
	if err := sqlxTx.GetContext(ctx, &row, query, string(tier), endsAt, charge, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customer.ErrInsufficientBalance
		}
		return nil, fmt.Errorf("サブスクリプションの更新に失敗: %w", err)
	}
	return row.toEntity(), nil
}

var _ customer.Repository = (*CustomerRepository)(nil)
