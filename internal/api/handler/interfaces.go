package handler

import (
	"context"

	"github.com/sanosuguru/go-book-reservation/internal/application"
	"github.com/sanosuguru/go-book-reservation/internal/domain/book"
	"github.com/sanosuguru/go-book-reservation/internal/domain/customer"
	"github.com/sanosuguru/go-book-reservation/internal/domain/reservation"
)

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	Reserve(ctx context.Context, customerID, bookID int64, days int) (*application.ReserveResult, error)
	GetReservation(ctx context.Context, id int64) (*reservation.Reservation, error)
	QueuePosition(ctx context.Context, bookID, customerID int64) (*int, error)
	EndByAdmin(ctx context.Context, reservationID int64) error
}

// SubscriptionServiceInterface はサブスクリプションサービスのインターフェース
type SubscriptionServiceInterface interface {
	Upgrade(ctx context.Context, customerID int64, tierName string, months int) (*customer.Customer, error)
	TopUp(ctx context.Context, customerID int64, amount int64) (*customer.Customer, error)
	Info(ctx context.Context, customerID int64) (*customer.Customer, error)
	Balance(ctx context.Context, customerID int64) (int64, error)
}

// BookServiceInterface は書籍サービスのインターフェース
type BookServiceInterface interface {
	CreateBook(ctx context.Context, input application.CreateBookInput) (*book.Book, error)
	GetBook(ctx context.Context, id int64) (*book.Book, error)
	ListBooks(ctx context.Context, limit, offset int) ([]*book.Book, error)
	AvailableUnits(ctx context.Context, id int64) (int, error)
}

// AdminServiceInterface は管理者サービスのインターフェース
type AdminServiceInterface interface {
	GetBookStatus(ctx context.Context, bookID int64) (*application.BookStatus, error)
	RevokeTokens(ctx context.Context, adminID, targetID int64) error
}
