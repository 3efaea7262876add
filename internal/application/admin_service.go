package application

import (
	"context"
	"time"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
	"github.com/sanosuguru/go-book-reservation/internal/domain/book"
	"github.com/sanosuguru/go-book-reservation/internal/domain/customer"
	"github.com/sanosuguru/go-book-reservation/internal/domain/queue"
	"github.com/sanosuguru/go-book-reservation/internal/domain/reservation"
)

// TokenRevoker はトークン失効の記録先
type TokenRevoker interface {
	Revoke(ctx context.Context, customerID, revokedBy int64, at time.Time) error
}

// BookStatus は管理者向けの書籍状態ビュー
type BookStatus struct {
	Book               *book.Book
	ActiveReservations []*reservation.Reservation
	WaitingList        []*queue.Entry
}

// AdminService は管理者向けの照会・操作を提供する
// 権限確認（admin ロール）はトランスポート層のミドルウェアが行う
type AdminService struct {
	books        book.Repository
	customers    customer.Repository
	reservations reservation.Repository
	queue        queue.Repository
	revoker      TokenRevoker
	now          func() time.Time
}

// NewAdminService は新しい AdminService を作成する
func NewAdminService(br book.Repository, cr customer.Repository, rr reservation.Repository, qr queue.Repository, tr TokenRevoker) *AdminService {
	return &AdminService{
		books:        br,
		customers:    cr,
		reservations: rr,
		queue:        qr,
		revoker:      tr,
		now:          time.Now,
	}
}

// GetBookStatus は書籍の在庫・有効な予約・待ち行列をまとめて返す
func (s *AdminService) GetBookStatus(ctx context.Context, bookID int64) (*BookStatus, error) {
	b, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		if err == book.ErrBookNotFound {
			return nil, apperror.NotFound("書籍が見つかりません")
		}
		return nil, apperror.Database("書籍の取得に失敗しました", err)
	}

	active, err := s.reservations.ListActiveByBook(ctx, bookID, s.now())
	if err != nil {
		return nil, apperror.Database("有効な予約の取得に失敗しました", err)
	}

	waiting, err := s.queue.ListByBook(ctx, bookID)
	if err != nil {
		return nil, apperror.Database("待ち行列の取得に失敗しました", err)
	}

	return &BookStatus{Book: b, ActiveReservations: active, WaitingList: waiting}, nil
}

// RevokeTokens は対象顧客の発行済みトークンを失効させる
// 管理者のトークンは失効できない
func (s *AdminService) RevokeTokens(ctx context.Context, adminID, targetID int64) error {
	target, err := s.customers.GetByID(ctx, targetID)
	if err != nil {
		if err == customer.ErrCustomerNotFound {
			return apperror.NotFound("対象の顧客が見つかりません")
		}
		return apperror.Database("対象顧客の取得に失敗しました", err)
	}

	if target.IsAdmin() {
		return apperror.Forbidden("管理者のトークンは失効できません")
	}

	if err := s.revoker.Revoke(ctx, targetID, adminID, s.now()); err != nil {
		return apperror.Database("トークン失効の記録に失敗しました", err)
	}
	return nil
}
