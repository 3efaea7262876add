package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
	"github.com/sanosuguru/go-book-reservation/internal/domain/book"
	"github.com/sanosuguru/go-book-reservation/internal/domain/customer"
	"github.com/sanosuguru/go-book-reservation/internal/domain/queue"
	"github.com/sanosuguru/go-book-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-book-reservation/internal/domain/transaction"
	redislock "github.com/sanosuguru/go-book-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-book-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-book-reservation/internal/pkg/metrics"
)

// ReserveStatus は予約リクエストの結果種別
type ReserveStatus string

const (
	ReserveStatusInstant ReserveStatus = "instant"
	ReserveStatusQueued  ReserveStatus = "queued"
)

// ReserveResult は予約リクエストの結果
// 即時確定なら Reservation を、在庫切れなら待ち行列の順位を持つ
type ReserveResult struct {
	Status        ReserveStatus
	Reservation   *reservation.Reservation
	QueuePosition int
}

// PromotionSkipPolicy は繰上げ失敗時の挙動
type PromotionSkipPolicy string

const (
	// 失敗したエントリを破棄して次のエントリを試す
	PromotionSkipAndContinue PromotionSkipPolicy = "skip_and_continue"
)

// ReservationService は予約の割当てを司る中心サービス
// 即時確定・待ち行列・解放時の繰上げという在庫と残高の状態遷移をすべて所有する
type ReservationService struct {
	txManager    transaction.Manager
	books        book.Repository
	customers    customer.Repository
	reservations reservation.Repository
	queue        queue.Repository
	eligibility  *EligibilityChecker
	pricing      PricingEngine
	lockManager  *redislock.LockManager
	unitsCache   *redislock.UnitsCache
	metrics      *metrics.Metrics
	skipPolicy   PromotionSkipPolicy
	now          func() time.Time
}

// NewReservationService は新しい ReservationService を作成する
// lockManager・unitsCache・m は nil でもよい（単一インスタンス構成ではストレージの
// 行ロックだけで直列化が成立する）
func NewReservationService(
	tm transaction.Manager,
	br book.Repository,
	cr customer.Repository,
	rr reservation.Repository,
	qr queue.Repository,
	ec *EligibilityChecker,
	lm *redislock.LockManager,
	uc *redislock.UnitsCache,
	m *metrics.Metrics,
) *ReservationService {
	return &ReservationService{
		txManager:    tm,
		books:        br,
		customers:    cr,
		reservations: rr,
		queue:        qr,
		eligibility:  ec,
		lockManager:  lm,
		unitsCache:   uc,
		metrics:      m,
		skipPolicy:   PromotionSkipAndContinue,
		now:          time.Now,
	}
}

// Reserve は予約リクエストを処理する
// 在庫があれば料金計算・残高確認・予約作成・在庫減算・残高減算を1トランザクションで
// 行い、在庫がなければ同じトランザクション内で待ち行列に追加する
func (s *ReservationService) Reserve(ctx context.Context, customerID, bookID int64, days int) (*ReserveResult, error) {
	cust, err := s.eligibility.Check(ctx, customerID, days)
	if err != nil {
		s.countReservation("rejected")
		return nil, err
	}

	// 同一書籍への同時リクエストを直列化する分散ロック
	if s.lockManager != nil {
		lockStart := time.Now()
		lock, err := s.lockManager.AcquireLockWithRetry(ctx, bookLockKey(bookID), 10*time.Second, 3, 100*time.Millisecond)
		if err != nil {
			s.observeLock("acquire", "failed", time.Since(lockStart))
			if errors.Is(err, redislock.ErrLockNotAcquired) {
				return nil, apperror.InvalidRequest("この書籍は現在他のリクエストを処理中です")
			}
			return nil, apperror.Database("ロック取得に失敗しました", err)
		}
		s.observeLock("acquire", "success", time.Since(lockStart))
		defer lock.Release(ctx)
	}

	// 履歴スナップショットはこの時点で確定する
	history, err := s.reservations.UsageHistory(ctx, customerID, s.now())
	if err != nil {
		return nil, apperror.Database("利用履歴の取得に失敗しました", err)
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, apperror.Database("トランザクション開始に失敗しました", err)
	}
	defer tx.Rollback()

	b, err := s.books.GetForUpdate(ctx, tx, bookID)
	if err != nil {
		if err == book.ErrBookNotFound {
			return nil, apperror.NotFound("書籍が見つかりません")
		}
		return nil, apperror.Database("書籍の取得に失敗しました", err)
	}

	if b.HasAvailableUnits() {
		res, err := s.grantInTx(ctx, tx, cust.Tier, customerID, bookID, days, history)
		if err != nil {
			s.countReservation("rejected")
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, apperror.Database("コミットに失敗しました", err)
		}
		s.invalidateUnits(ctx, bookID)
		s.countReservation("instant")
		s.gaugeActive(1)
		return &ReserveResult{Status: ReserveStatusInstant, Reservation: res}, nil
	}

	entry := queue.NewEntry(bookID, customerID, days, cust.Tier, s.now())
	position, err := s.queue.Enqueue(ctx, tx, entry)
	if err != nil {
		return nil, apperror.Database("待ち行列への追加に失敗しました", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperror.Database("コミットに失敗しました", err)
	}
	s.countReservation("queued")
	return &ReserveResult{Status: ReserveStatusQueued, QueuePosition: position}, nil
}

// grantInTx は在庫1冊の即時確定を1トランザクション内で行う
// 予約作成・在庫減算・残高減算はすべて成功するか、すべて取り消される
func (s *ReservationService) grantInTx(
	ctx context.Context,
	tx transaction.Tx,
	tier customer.Tier,
	customerID, bookID int64,
	days int,
	history reservation.UsageHistory,
) (*reservation.Reservation, error) {
	price := s.pricing.Price(tier, days, history)

	cust, err := s.customers.GetForUpdate(ctx, tx, customerID)
	if err != nil {
		if err == customer.ErrCustomerNotFound {
			return nil, apperror.NotFound("顧客が見つかりません")
		}
		return nil, apperror.Database("顧客の取得に失敗しました", err)
	}
	if !cust.CanAfford(price) {
		return nil, apperror.InsufficientFunds(price, cust.Wallet)
	}

	res := reservation.NewReservation(customerID, bookID, days, price, s.now())
	if err := res.Validate(); err != nil {
		return nil, apperror.Wrap(apperror.KindInvalidRequest, err.Error(), err)
	}
	if err := s.reservations.Create(ctx, tx, res); err != nil {
		return nil, apperror.Database("予約の作成に失敗しました", err)
	}
	if err := s.books.DecrementUnits(ctx, tx, bookID); err != nil {
		return nil, apperror.Database("在庫の減算に失敗しました", err)
	}
	if err := s.customers.Debit(ctx, tx, customerID, price); err != nil {
		if err == customer.ErrInsufficientBalance {
			return nil, apperror.InsufficientFunds(price, cust.Wallet)
		}
		return nil, apperror.Database("ウォレットの減算に失敗しました", err)
	}
	return res, nil
}

// EndByAdmin は管理者による予約の早期終了を行う
// 終了と在庫返却を1トランザクションで行い、その後ベストエフォートで
// 待ち行列からの繰上げを試みる
func (s *ReservationService) EndByAdmin(ctx context.Context, reservationID int64) error {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		if err == reservation.ErrReservationNotFound {
			return apperror.NotFound("予約が見つかりません")
		}
		return apperror.Database("予約の取得に失敗しました", err)
	}

	if err := res.TerminateByAdmin(s.now()); err != nil {
		return apperror.AlreadyEnded("この予約は既に終了しています")
	}

	if err := s.release(ctx, res); err != nil {
		return err
	}

	s.promoteNext(ctx, res.BookID)
	return nil
}

// ExpireDue は end_time を過ぎてもまだ active な予約を満了させる
// 満了ごとに在庫を返却し、繰上げを試みる。処理した件数を返す
func (s *ReservationService) ExpireDue(ctx context.Context) (int, error) {
	due, err := s.reservations.ListDueForExpiry(ctx, s.now(), 100)
	if err != nil {
		return 0, apperror.Database("満了予約の取得に失敗しました", err)
	}

	expired := 0
	for _, res := range due {
		if err := res.Expire(s.now()); err != nil {
			continue
		}
		if err := s.release(ctx, res); err != nil {
			// 管理者終了や別インスタンスのスイープに先を越されたら黙って次へ
			if apperror.IsKind(err, apperror.KindAlreadyEnded) {
				continue
			}
			logger.Error("予約の満了処理に失敗",
				zap.Int64("reservation_id", res.ID),
				zap.Error(err),
			)
			continue
		}
		expired++
		s.promoteNext(ctx, res.BookID)
	}
	return expired, nil
}

// release は予約の終了保存と在庫返却を1トランザクションで行う
// 同じ予約への並行した終了は、End の status 述語で一方だけが勝ち、
// 負けた側は AlreadyEnded を受け取って在庫を返却しない
func (s *ReservationService) release(ctx context.Context, res *reservation.Reservation) error {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return apperror.Database("トランザクション開始に失敗しました", err)
	}
	defer tx.Rollback()

	if err := s.reservations.End(ctx, tx, res); err != nil {
		if errors.Is(err, reservation.ErrAlreadyEnded) {
			return apperror.AlreadyEnded("この予約は既に終了しています")
		}
		return apperror.Database("予約の終了保存に失敗しました", err)
	}
	if err := s.books.IncrementUnits(ctx, tx, res.BookID); err != nil {
		return apperror.Database("在庫の返却に失敗しました", err)
	}
	if err := tx.Commit(); err != nil {
		return apperror.Database("コミットに失敗しました", err)
	}
	s.invalidateUnits(ctx, res.BookID)
	s.gaugeActive(-1)
	return nil
}

// promoteNext は待ち行列の先頭を新しい予約に繰り上げる
// 料金と適格性は繰上げ時点で再評価する。支払不能・不適格になったエントリは
// 破棄して次のエントリを試す（skip_and_continue）。繰上げはベストエフォートで、
// 失敗しても返却済みの在庫は次の明示的な予約リクエストに使える
func (s *ReservationService) promoteNext(ctx context.Context, bookID int64) {
	// 待ち行列が空（通常ケース）ならトランザクションを開かずに済ませる
	if n, err := s.queue.CountByBook(ctx, bookID); err != nil || n == 0 {
		if err != nil {
			logger.Error("待ち行列の長さ取得に失敗", zap.Int64("book_id", bookID), zap.Error(err))
		}
		return
	}
	for {
		promoted, more := s.tryPromoteOne(ctx, bookID)
		if promoted || !more {
			return
		}
	}
}

// tryPromoteOne は先頭エントリ1件の繰上げを試みる
// 戻り値は（繰上げ成功したか, まだ試すべきエントリが残り得るか）
func (s *ReservationService) tryPromoteOne(ctx context.Context, bookID int64) (bool, bool) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		logger.Error("繰上げ用トランザクション開始に失敗", zap.Error(err))
		return false, false
	}
	defer tx.Rollback()

	b, err := s.books.GetForUpdate(ctx, tx, bookID)
	if err != nil {
		logger.Error("繰上げ対象書籍の取得に失敗", zap.Int64("book_id", bookID), zap.Error(err))
		return false, false
	}
	if !b.HasAvailableUnits() {
		return false, false
	}

	entry, err := s.queue.PopHead(ctx, tx, bookID)
	if err != nil {
		logger.Error("待ち行列の取り出しに失敗", zap.Int64("book_id", bookID), zap.Error(err))
		return false, false
	}
	if entry == nil {
		return false, false
	}

	cust, err := s.eligibility.Check(ctx, entry.CustomerID, entry.Days)
	if err != nil {
		// 不適格になったエントリは破棄だけコミットして次へ
		return false, s.skipEntry(tx, entry, "eligibility", err)
	}

	history, err := s.reservations.UsageHistory(ctx, entry.CustomerID, s.now())
	if err != nil {
		logger.Error("繰上げ用履歴の取得に失敗", zap.Int64("customer_id", entry.CustomerID), zap.Error(err))
		return false, false
	}

	res, err := s.grantInTx(ctx, tx, cust.Tier, entry.CustomerID, bookID, entry.Days, history)
	if err != nil {
		if apperror.IsKind(err, apperror.KindInsufficientFunds) {
			return false, s.skipEntry(tx, entry, "insufficient_funds", err)
		}
		logger.Error("繰上げ予約の作成に失敗",
			zap.Int64("book_id", bookID),
			zap.Int64("customer_id", entry.CustomerID),
			zap.Error(err),
		)
		s.countPromotion("failed")
		return false, false
	}

	if err := tx.Commit(); err != nil {
		logger.Error("繰上げのコミットに失敗", zap.Error(err))
		s.countPromotion("failed")
		return false, false
	}

	s.invalidateUnits(ctx, bookID)
	s.countPromotion("promoted")
	s.gaugeActive(1)
	logger.Info("待ち行列から予約を繰上げ",
		zap.Int64("book_id", bookID),
		zap.Int64("customer_id", entry.CustomerID),
		zap.Int64("reservation_id", res.ID),
		zap.Int64("price", res.Price),
	)
	return true, true
}

// skipEntry はエントリの破棄だけをコミットし、スキップを記録する
// コミットに失敗するとエントリは行列に残るため、同じエントリを
// 取り出し続けないよう false を返してループを止める
func (s *ReservationService) skipEntry(tx transaction.Tx, entry *queue.Entry, reason string, cause error) bool {
	if err := tx.Commit(); err != nil {
		logger.Error("スキップのコミットに失敗", zap.Error(err))
		return false
	}
	s.countPromotion("skipped")
	logger.Warn("待ち行列エントリをスキップ",
		zap.Int64("book_id", entry.BookID),
		zap.Int64("customer_id", entry.CustomerID),
		zap.String("reason", reason),
		zap.Error(cause),
	)
	return true
}

// GetReservation はIDから予約を取得する
func (s *ReservationService) GetReservation(ctx context.Context, id int64) (*reservation.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if err == reservation.ErrReservationNotFound {
			return nil, apperror.NotFound("予約が見つかりません")
		}
		return nil, apperror.Database("予約の取得に失敗しました", err)
	}
	return res, nil
}

// QueuePosition は顧客の待ち行列での現在順位を返す
func (s *ReservationService) QueuePosition(ctx context.Context, bookID, customerID int64) (*int, error) {
	pos, err := s.queue.PositionOf(ctx, bookID, customerID)
	if err != nil {
		return nil, apperror.Database("待ち順位の取得に失敗しました", err)
	}
	return pos, nil
}

func (s *ReservationService) invalidateUnits(ctx context.Context, bookID int64) {
	if s.unitsCache == nil {
		return
	}
	if err := s.unitsCache.Invalidate(ctx, bookID); err != nil {
		logger.Warn("在庫キャッシュの無効化に失敗", zap.Int64("book_id", bookID), zap.Error(err))
	}
}

func (s *ReservationService) countReservation(result string) {
	if s.metrics != nil {
		s.metrics.ReservationsTotal.WithLabelValues(result).Inc()
	}
}

func (s *ReservationService) countPromotion(status string) {
	if s.metrics != nil {
		s.metrics.PromotionsTotal.WithLabelValues(status).Inc()
	}
}

func (s *ReservationService) observeLock(operation, status string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.DistributedLockDuration.WithLabelValues(operation, status).Observe(d.Seconds())
	}
}

func (s *ReservationService) gaugeActive(delta float64) {
	if s.metrics != nil {
		s.metrics.ActiveReservations.Add(delta)
	}
}

func bookLockKey(bookID int64) string {
	return fmt.Sprintf("book:%d", bookID)
}
