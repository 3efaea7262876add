package reservation

import "time"

// Status は予約の状態を表す
type Status string

const (
	StatusActive            Status = "active"
	StatusExpired           Status = "expired"
	StatusTerminatedByAdmin Status = "terminated_by_admin"
)

// Reservation は予約エンティティを表す
// 作成後は早期終了による end_time/status の遷移以外は不変
type Reservation struct {
	ID         int64
	CustomerID int64
	BookID     int64
	StartTime  time.Time
	EndTime    time.Time
	Price      int64
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewReservation は即時確定の予約を作成する
func NewReservation(customerID, bookID int64, days int, price int64, now time.Time) *Reservation {
	return &Reservation{
		CustomerID: customerID,
		BookID:     bookID,
		StartTime:  now,
		EndTime:    now.AddDate(0, 0, days),
		Price:      price,
		Status:     StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsLive は予約が現在有効かを返す
// end_time を過ぎた予約は返却済みとみなし、同時予約数にも数えない
func (r *Reservation) IsLive(now time.Time) bool {
	return r.EndTime.After(now)
}

// TerminateByAdmin は管理者による早期終了を行う
func (r *Reservation) TerminateByAdmin(now time.Time) error {
	if !r.IsLive(now) {
		return ErrAlreadyEnded
	}
	r.EndTime = now
	r.Status = StatusTerminatedByAdmin
	r.UpdatedAt = now
	return nil
}

// Expire は自然満了による終了を行う
// 満了時刻は予約自身の end_time のままとする
func (r *Reservation) Expire(now time.Time) error {
	if r.Status != StatusActive {
		return ErrAlreadyEnded
	}
	r.Status = StatusExpired
	r.UpdatedAt = now
	return nil
}

// Validate は予約の検証を行う
func (r *Reservation) Validate() error {
	if r.CustomerID == 0 {
		return ErrCustomerIDRequired
	}
	if r.BookID == 0 {
		return ErrBookIDRequired
	}
	if !r.EndTime.After(r.StartTime) {
		return ErrInvalidPeriod
	}
	if r.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}
