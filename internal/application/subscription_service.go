package application

import (
	"context"
	"time"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
	"github.com/sanosuguru/go-book-reservation/internal/domain/customer"
	"github.com/sanosuguru/go-book-reservation/internal/domain/transaction"
)

// SubscriptionService はサブスクリプションの階層とウォレットを管理する
type SubscriptionService struct {
	txManager transaction.Manager
	customers customer.Repository
	now       func() time.Time
}

// NewSubscriptionService は新しい SubscriptionService を作成する
func NewSubscriptionService(tm transaction.Manager, cr customer.Repository) *SubscriptionService {
	return &SubscriptionService{txManager: tm, customers: cr, now: time.Now}
}

// Upgrade はサブスクリプションのアップグレード・延長を行う
// 月額（plus 50000 / premium 200000）× 月数をウォレットから引き落とす。
// 有効な契約が残っていれば終了時刻に加算し、なければ現在時刻から起算する
func (s *SubscriptionService) Upgrade(ctx context.Context, customerID int64, tierName string, months int) (*customer.Customer, error) {
	tier, err := customer.ParseTier(tierName)
	if err != nil || tier == customer.TierFree {
		return nil, apperror.InvalidRequest("サブスクリプションモデルが不正です")
	}
	if months < 1 {
		return nil, apperror.InvalidRequest("月数は1以上を指定してください")
	}

	total := tier.MonthlyFee() * int64(months)

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, apperror.Database("トランザクション開始に失敗しました", err)
	}
	defer tx.Rollback()

	cust, err := s.customers.GetForUpdate(ctx, tx, customerID)
	if err != nil {
		if err == customer.ErrCustomerNotFound {
			return nil, apperror.NotFound("顧客が見つかりません")
		}
		return nil, apperror.Database("顧客の取得に失敗しました", err)
	}

	if !cust.CanAfford(total) {
		return nil, apperror.InsufficientFunds(total, cust.Wallet)
	}

	endsAt := cust.SubscriptionEndAfterUpgrade(months, s.now())
	updated, err := s.customers.UpdateSubscription(ctx, tx, customerID, tier, endsAt, total)
	if err != nil {
		if err == customer.ErrInsufficientBalance {
			return nil, apperror.InsufficientFunds(total, cust.Wallet)
		}
		return nil, apperror.Database("サブスクリプションの更新に失敗しました", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.Database("コミットに失敗しました", err)
	}
	return updated, nil
}

// TopUp はウォレット残高を加算する
func (s *SubscriptionService) TopUp(ctx context.Context, customerID int64, amount int64) (*customer.Customer, error) {
	if amount <= 0 {
		return nil, apperror.InvalidRequest("金額は0より大きい必要があります")
	}

	updated, err := s.customers.Credit(ctx, customerID, amount)
	if err != nil {
		if err == customer.ErrCustomerNotFound {
			return nil, apperror.NotFound("顧客が見つかりません")
		}
		return nil, apperror.Database("ウォレットの加算に失敗しました", err)
	}
	return updated, nil
}

// Info は顧客のサブスクリプション情報を取得する
func (s *SubscriptionService) Info(ctx context.Context, customerID int64) (*customer.Customer, error) {
	cust, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if err == customer.ErrCustomerNotFound {
			return nil, apperror.NotFound("顧客が見つかりません")
		}
		return nil, apperror.Database("顧客の取得に失敗しました", err)
	}
	return cust, nil
}

// Balance はウォレット残高を取得する
func (s *SubscriptionService) Balance(ctx context.Context, customerID int64) (int64, error) {
	cust, err := s.Info(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return cust.Wallet, nil
}
