package reservation

import "errors"

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound = errors.New("予約が見つかりません")
	ErrAlreadyEnded        = errors.New("この予約は既に終了しています")
	ErrCustomerIDRequired  = errors.New("顧客IDは必須です")
	ErrBookIDRequired      = errors.New("書籍IDは必須です")
	ErrInvalidPeriod       = errors.New("予約期間が不正です")
	ErrInvalidPrice        = errors.New("価格が不正です")
)
