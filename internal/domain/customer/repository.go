package customer

import (
	"context"
	"time"

	"github.com/sanosuguru/go-book-reservation/internal/domain/transaction"
)

// Repository は顧客リポジトリのインターフェース
type Repository interface {
	// GetByID はIDから顧客を取得する
	GetByID(ctx context.Context, id int64) (*Customer, error)

	// GetForUpdate は顧客行をロックして取得する（トランザクション必須）
	GetForUpdate(ctx context.Context, tx transaction.Tx, id int64) (*Customer, error)

	// Debit は残高確認と減算をアトミックに行う（トランザクション必須）
	// 残高不足の場合は ErrInsufficientBalance を返す
	Debit(ctx context.Context, tx transaction.Tx, id int64, amount int64) error

	// Credit は残高を加算し更新後の顧客を返す
	Credit(ctx context.Context, id int64, amount int64) (*Customer, error)

	// UpdateSubscription は階層・終了時刻の更新と料金の減算を1文で行う（トランザクション必須）
	UpdateSubscription(ctx context.Context, tx transaction.Tx, id int64, tier Tier, endsAt time.Time, charge int64) (*Customer, error)
}
