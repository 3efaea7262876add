package customer

import "time"

// Tier はサブスクリプションの階層を表す
type Tier string

const (
	TierFree    Tier = "free"
	TierPlus    Tier = "plus"
	TierPremium Tier = "premium"
)

// ParseTier は文字列から Tier を解釈する
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierFree, TierPlus, TierPremium:
		return Tier(s), nil
	default:
		return "", ErrInvalidTier
	}
}

// CanReserve は予約操作が許可される階層かを返す
func (t Tier) CanReserve() bool {
	return t == TierPlus || t == TierPremium
}

// MaxReservationDays は一度に予約できる最大日数を返す
func (t Tier) MaxReservationDays() int {
	switch t {
	case TierPlus:
		return 7
	case TierPremium:
		return 14
	default:
		return 0
	}
}

// MaxConcurrentReservations は同時に保持できる予約数の上限を返す
func (t Tier) MaxConcurrentReservations() int {
	switch t {
	case TierPlus:
		return 5
	case TierPremium:
		return 10
	default:
		return 0
	}
}

// DailyRate は1日あたりの基本料金を返す
func (t Tier) DailyRate() int64 {
	if t == TierPremium {
		return 2000
	}
	return 1000
}

// QueueRank は待ち行列での優先度を返す（小さいほど先頭に近い）
func (t Tier) QueueRank() int {
	if t == TierPremium {
		return 0
	}
	return 1
}

// MonthlyFee は月額のサブスクリプション料金を返す
func (t Tier) MonthlyFee() int64 {
	switch t {
	case TierPlus:
		return 50000
	case TierPremium:
		return 200000
	default:
		return 0
	}
}

// Role は利用者の権限を表す
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Customer は顧客エンティティを表す
// Wallet は通貨の整数額で、予約の決済とサブスクリプション料金に使用する
type Customer struct {
	ID                 int64
	Username           string
	Email              string
	Role               Role
	Tier               Tier
	SubscriptionEndsAt *time.Time // nil は未契約
	Wallet             int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsAdmin は管理者かを返す
func (c *Customer) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// HasLiveSubscription は有効期限内のサブスクリプションを持つかを返す
func (c *Customer) HasLiveSubscription(now time.Time) bool {
	return c.SubscriptionEndsAt != nil && c.SubscriptionEndsAt.After(now)
}

// SubscriptionEndAfterUpgrade はアップグレード後のサブスクリプション終了時刻を計算する
// 有効な契約が残っていれば終了時刻に加算し、なければ現在時刻から起算する
func (c *Customer) SubscriptionEndAfterUpgrade(months int, now time.Time) time.Time {
	extension := time.Duration(30*months) * 24 * time.Hour
	if c.HasLiveSubscription(now) {
		return c.SubscriptionEndsAt.Add(extension)
	}
	return now.Add(extension)
}

// CanAfford は指定額を支払えるかを返す
func (c *Customer) CanAfford(amount int64) bool {
	return c.Wallet >= amount
}
