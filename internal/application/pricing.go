package application

import (
	"github.com/sanosuguru/go-book-reservation/internal/domain/customer"
	"github.com/sanosuguru/go-book-reservation/internal/domain/reservation"
)

// plus 階層の割引条件
const (
	// 直近30日でこの冊数以上を読了していると30%割引
	discountBookThreshold = 3
	// 直近60日の支払額がこの金額以上だと無料
	freeThreshold int64 = 300000
)

// PricingEngine は階層・日数・利用履歴から予約料金を算出する
// 副作用を持たず、同一の履歴スナップショットに対しては常に同じ結果を返す
type PricingEngine struct{}

// Price は予約料金を計算する
// premium は 2000/日、それ以外は 1000/日。plus のみ履歴による割引が入り、
// 無料条件は割引より優先される。free 階層は適格性チェックで先に弾かれる
func (PricingEngine) Price(tier customer.Tier, days int, history reservation.UsageHistory) int64 {
	price := tier.DailyRate() * int64(days)

	if tier != customer.TierPlus {
		return price
	}

	if history.BooksCompleted30d >= discountBookThreshold {
		// 30%割引。金額は整数のまま 7/10 に切り捨てる
		price = price * 7 / 10
	}

	if history.AmountPaid60d >= freeThreshold {
		price = 0
	}

	return price
}
