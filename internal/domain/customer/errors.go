package customer

import "errors"

// Customer ドメインのエラー定義
var (
	ErrCustomerNotFound    = errors.New("顧客が見つかりません")
	ErrInvalidTier         = errors.New("サブスクリプションモデルが不正です")
	ErrInvalidAmount       = errors.New("金額は0より大きい必要があります")
	ErrInsufficientBalance = errors.New("ウォレット残高が不足しています")
)
