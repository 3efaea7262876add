package book

import "errors"

// Book ドメインのエラー定義
var (
	ErrBookNotFound      = errors.New("書籍が見つかりません")
	ErrISBNAlreadyExists = errors.New("このISBNの書籍は既に登録されています")
	ErrTitleRequired     = errors.New("タイトルは必須です")
	ErrISBNRequired      = errors.New("ISBNは必須です")
	ErrInvalidPrice      = errors.New("価格が不正です")
	ErrInvalidUnits      = errors.New("冊数が不正です")
	ErrNoAvailableUnits  = errors.New("貸出可能な在庫がありません")
)
