package application

import (
	"context"
	"time"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
	"github.com/sanosuguru/go-book-reservation/internal/domain/customer"
	"github.com/sanosuguru/go-book-reservation/internal/domain/reservation"
)

// EligibilityChecker は顧客が予約を行えるかを検証する
// 階層・最大日数・同時予約数の上限を確認するだけで、状態は変更しない
type EligibilityChecker struct {
	customers    customer.Repository
	reservations reservation.Repository
	now          func() time.Time
}

// NewEligibilityChecker は新しい EligibilityChecker を作成する
func NewEligibilityChecker(cr customer.Repository, rr reservation.Repository) *EligibilityChecker {
	return &EligibilityChecker{customers: cr, reservations: rr, now: time.Now}
}

// Check は顧客が days 日の予約を行えるかを検証し、顧客を返す
// 失敗理由はそれぞれ固有のエラー種別で返す
func (c *EligibilityChecker) Check(ctx context.Context, customerID int64, days int) (*customer.Customer, error) {
	cust, err := c.customers.GetByID(ctx, customerID)
	if err != nil {
		if err == customer.ErrCustomerNotFound {
			return nil, apperror.NotFound("顧客が見つかりません")
		}
		return nil, apperror.Database("顧客の取得に失敗しました", err)
	}

	if !cust.Tier.CanReserve() {
		return nil, apperror.Forbidden("無料プランの顧客は予約できません")
	}

	if maxDays := cust.Tier.MaxReservationDays(); days > maxDays {
		return nil, apperror.Newf(apperror.KindInvalidRequest,
			"予約できる最大日数は%d日です", maxDays)
	}

	live, err := c.reservations.CountLiveByCustomer(ctx, customerID, c.now())
	if err != nil {
		return nil, apperror.Database("有効な予約数の取得に失敗しました", err)
	}
	if maxConcurrent := cust.Tier.MaxConcurrentReservations(); live >= maxConcurrent {
		return nil, apperror.Newf(apperror.KindInvalidRequest,
			"同時に予約できるのは%d冊までです", maxConcurrent)
	}

	return cust, nil
}
