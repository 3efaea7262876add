package book

import "time"

// Book は書籍エンティティを表す
// Units は現在貸出可能な冊数で、予約の確定と返却でのみ増減する
type Book struct {
	ID          int64
	Title       string
	ISBN        string
	Price       int64
	Genre       string
	Description string
	Units       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewBook は新しい書籍を作成する
func NewBook(title, isbn, genre, description string, price int64, units int) *Book {
	now := time.Now()
	return &Book{
		Title:       title,
		ISBN:        isbn,
		Price:       price,
		Genre:       genre,
		Description: description,
		Units:       units,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasAvailableUnits は貸出可能な在庫があるかを返す
func (b *Book) HasAvailableUnits() bool {
	return b.Units > 0
}

// Validate は書籍の検証を行う
func (b *Book) Validate() error {
	if b.Title == "" {
		return ErrTitleRequired
	}
	if b.ISBN == "" {
		return ErrISBNRequired
	}
	if b.Price < 0 {
		return ErrInvalidPrice
	}
	if b.Units < 0 {
		return ErrInvalidUnits
	}
	return nil
}
