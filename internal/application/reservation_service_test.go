//go:build integration
// +build integration

package application

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
	"github.com/sanosuguru/go-book-reservation/internal/config"
	"github.com/sanosuguru/go-book-reservation/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-book-reservation/internal/infrastructure/redis"
)

type testEnv struct {
	db            *sqlx.DB
	reservations  *ReservationService
	books         *BookService
	subscriptions *SubscriptionService
}

func setupTestEnv(t *testing.T) (*testEnv, func()) {
	cfg := config.Load()

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		t.Skipf("DB接続エラー: %v", err)
	}
	require.NoError(t, postgres.RunMigrations(db.DB, "../../migrations"))

	// Redisが落ちていても行ロックだけで直列化は成立する
	var lockManager *redisinfra.LockManager
	redisClient := redisinfra.NewClient(&cfg.Redis)
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := redisinfra.Ping(pingCtx, redisClient); err == nil {
		lockManager = redisinfra.NewLockManager(redisClient)
	}
	cancel()

	bookRepo := postgres.NewBookRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	queueRepo := postgres.NewQueueRepository(db)
	txManager := postgres.NewTxManager(db)
	eligibility := NewEligibilityChecker(customerRepo, reservationRepo)

	env := &testEnv{
		db:            db,
		reservations:  NewReservationService(txManager, bookRepo, customerRepo, reservationRepo, queueRepo, eligibility, lockManager, nil, nil),
		books:         NewBookService(bookRepo, nil),
		subscriptions: NewSubscriptionService(txManager, customerRepo),
	}

	cleanup := func() {
		db.Exec("DELETE FROM reservation_queue")
		db.Exec("DELETE FROM reservations")
		db.Exec("DELETE FROM revoked_tokens")
		db.Exec("DELETE FROM books")
		db.Exec("DELETE FROM customers")
		redisClient.Close()
		db.Close()
	}

	return env, cleanup
}

func createTestCustomer(t *testing.T, db *sqlx.DB, tier string, wallet int64) int64 {
	t.Helper()
	name := "user-" + uuid.NewString()
	var id int64
	var err error
	if tier == "free" {
		err = db.Get(&id,
			`INSERT INTO customers (username, email, subscription_model, wallet) VALUES ($1, $2, $3, $4) RETURNING customer_id`,
			name, name+"@example.com", tier, wallet)
	} else {
		err = db.Get(&id,
			`INSERT INTO customers (username, email, subscription_model, subscription_end_time, wallet) VALUES ($1, $2, $3, NOW() + INTERVAL '30 days', $4) RETURNING customer_id`,
			name, name+"@example.com", tier, wallet)
	}
	require.NoError(t, err)
	return id
}

func createTestBook(t *testing.T, db *sqlx.DB, units int) int64 {
	t.Helper()
	var id int64
	err := db.Get(&id,
		`INSERT INTO books (title, isbn, price, genre, units) VALUES ($1, $2, 1500, '文学', $3) RETURNING book_id`,
		"並行テスト書籍", "isbn-"+uuid.NewString(), units)
	require.NoError(t, err)
	return id
}

func bookUnits(t *testing.T, db *sqlx.DB, bookID int64) int {
	t.Helper()
	var units int
	require.NoError(t, db.Get(&units, `SELECT units FROM books WHERE book_id = $1`, bookID))
	return units
}

func TestConcurrentReservation(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	bookID := createTestBook(t, env.db, 1)

	const numCustomers = 10
	customerIDs := make([]int64, numCustomers)
	for i := range customerIDs {
		customerIDs[i] = createTestCustomer(t, env.db, "plus", 100000)
	}

	t.Run("最後の1冊への10並行リクエストで即時確定は1件だけ", func(t *testing.T) {
		var instantCount, queuedCount, rejectedCount int32
		var wg sync.WaitGroup

		for _, cid := range customerIDs {
			wg.Add(1)
			go func(customerID int64) {
				defer wg.Done()
				result, err := env.reservations.Reserve(ctx, customerID, bookID, 3)
				if err != nil {
					// 分散ロックの競合負けはリクエストごと拒否される
					atomic.AddInt32(&rejectedCount, 1)
					return
				}
				switch result.Status {
				case ReserveStatusInstant:
					atomic.AddInt32(&instantCount, 1)
				case ReserveStatusQueued:
					atomic.AddInt32(&queuedCount, 1)
				}
			}(cid)
		}
		wg.Wait()

		assert.Equal(t, int32(1), instantCount, "即時確定は1件だけ")
		assert.Equal(t, int32(numCustomers), instantCount+queuedCount+rejectedCount)
		assert.Equal(t, 0, bookUnits(t, env.db, bookID), "在庫は0")

		var activeCount int
		require.NoError(t, env.db.Get(&activeCount, `SELECT COUNT(*) FROM reservations WHERE book_id = $1 AND status = 'active'`, bookID))
		assert.Equal(t, 1, activeCount, "有効な予約は1件だけ")

		var queueLen int
		require.NoError(t, env.db.Get(&queueLen, `SELECT COUNT(*) FROM reservation_queue WHERE book_id = $1`, bookID))
		assert.Equal(t, int(queuedCount), queueLen, "待ち行列はqueuedの件数と一致")
	})
}

func TestConcurrentEndByAdmin(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	bookID := createTestBook(t, env.db, 1)
	customerID := createTestCustomer(t, env.db, "plus", 100000)

	result, err := env.reservations.Reserve(ctx, customerID, bookID, 7)
	require.NoError(t, err)
	require.Equal(t, ReserveStatusInstant, result.Status)
	reservationID := result.Reservation.ID

	t.Run("同じ予約への並行終了で在庫は1冊しか返らない", func(t *testing.T) {
		var successCount, alreadyEndedCount int32
		var wg sync.WaitGroup

		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := env.reservations.EndByAdmin(ctx, reservationID)
				switch {
				case err == nil:
					atomic.AddInt32(&successCount, 1)
				case apperror.IsKind(err, apperror.KindAlreadyEnded):
					atomic.AddInt32(&alreadyEndedCount, 1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), successCount, "成功は1回だけ")
		assert.Equal(t, int32(1), alreadyEndedCount, "負けた側はAlreadyEnded")
		assert.Equal(t, 1, bookUnits(t, env.db, bookID), "在庫は元の1冊に戻るだけ")
	})
}
