package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-book-reservation/internal/pkg/logger"
)

// ReservationExpirer は満了予約の処理を行うインターフェース
type ReservationExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// ExpiredReservationSweeper は end_time を過ぎた予約を定期的に満了させるワーカー
// 満了のたびに在庫が返却され、待ち行列からの繰上げが走る
type ExpiredReservationSweeper struct {
	reservationService ReservationExpirer
	interval           time.Duration
	stopCh             chan struct{}
	doneCh             chan struct{}
}

// NewExpiredReservationSweeper は新しいスイーパーを作成
func NewExpiredReservationSweeper(rs ReservationExpirer, interval time.Duration) *ExpiredReservationSweeper {
	return &ExpiredReservationSweeper{
		reservationService: rs,
		interval:           interval,
		stopCh:             make(chan struct{}),
		doneCh:             make(chan struct{}),
	}
}

// Start はスイーパーを開始
func (s *ExpiredReservationSweeper) Start(ctx context.Context) {
	logger.Info("満了予約スイーパー開始", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("満了予約スイーパー停止（コンテキストキャンセル）")
			return
		case <-s.stopCh:
			logger.Info("満了予約スイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止
func (s *ExpiredReservationSweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// sweep は満了した予約を処理する
func (s *ExpiredReservationSweeper) sweep(ctx context.Context) {
	log := logger.With(zap.String("worker", "expired_reservation_sweeper"))
	log.Debug("満了予約のスイープ開始")

	count, err := s.reservationService.ExpireDue(ctx)
	if err != nil {
		log.Error("満了予約のスイープ失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("予約を満了処理", zap.Int("count", count))
	} else {
		log.Debug("満了すべき予約なし")
	}
}
