package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// RevocationStore は失効させたトークンの記録を管理する
// 失効時刻より前に発行されたトークンはすべて無効とみなす
type RevocationStore struct {
	db *sqlx.DB
}

// NewRevocationStore は新しい RevocationStore を作成する
func NewRevocationStore(db *sqlx.DB) *RevocationStore {
	return &RevocationStore{db: db}
}

// IsRevoked は指定顧客の issuedAt 時点のトークンが失効済みかを返す
func (s *RevocationStore) IsRevoked(ctx context.Context, customerID int64, issuedAt time.Time) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM revoked_tokens WHERE customer_id = $1 AND revoked_at > $2`
	if err := s.db.GetContext(ctx, &count, query, customerID, issuedAt); err != nil {
		return false, fmt.Errorf("失効記録の取得に失敗: %w", err)
	}
	return count > 0, nil
}

// Revoke は顧客のトークン失効を記録する
func (s *RevocationStore) Revoke(ctx context.Context, customerID, revokedBy int64, at time.Time) error {
	query := `INSERT INTO revoked_tokens (customer_id, revoked_at, revoked_by) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, customerID, at, revokedBy); err != nil {
		return fmt.Errorf("失効記録の保存に失敗: %w", err)
	}
	return nil
}
