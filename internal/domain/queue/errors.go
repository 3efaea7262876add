package queue

import "errors"

// Queue ドメインのエラー定義
var (
	ErrEntryNotFound = errors.New("待ち行列エントリが見つかりません")
)
