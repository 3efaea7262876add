package apperror

import (
	"errors"
	"fmt"
)

// Kind はアプリケーションエラーの種別を表す閉じた列挙
type Kind int

const (
	KindAuthenticationFailed Kind = iota
	KindForbidden
	KindNotFound
	KindInvalidRequest
	KindInsufficientFunds
	KindAlreadyEnded
	KindDatabase
)

// String は種別名を返す
func (k Kind) String() string {
	switch k {
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidRequest:
		return "invalid_request"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindAlreadyEnded:
		return "already_ended"
	case KindDatabase:
		return "database_error"
	default:
		return "unknown"
	}
}

// Error はアプリケーション全体で使用するエラー値
// 種別・メッセージ・構造化された詳細情報を持ち、トランスポート層が
// 種別ごとに網羅的にハンドリングする
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap はラップされた原因エラーを返す
func (e *Error) Unwrap() error {
	return e.cause
}

// New は指定種別のエラーを作成する
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf はフォーマット付きでエラーを作成する
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap は原因エラーを保持したままエラーを作成する
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithDetails は詳細情報を付加した新しいエラーを返す
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Details: details, cause: e.cause}
}

// AuthenticationFailed は認証エラーを作成する
func AuthenticationFailed(message string) *Error {
	return New(KindAuthenticationFailed, message)
}

// Forbidden は権限エラーを作成する
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// NotFound はリソース未検出エラーを作成する
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// InvalidRequest はリクエスト不正エラーを作成する
func InvalidRequest(message string) *Error {
	return New(KindInvalidRequest, message)
}

// InsufficientFunds は残高不足エラーを作成する
// 必要金額と現在残高を詳細情報として保持する
func InsufficientFunds(required, current int64) *Error {
	return &Error{
		Kind:    KindInsufficientFunds,
		Message: "ウォレット残高が不足しています",
		Details: map[string]interface{}{
			"required":        required,
			"current_balance": current,
		},
	}
}

// AlreadyEnded は終了済み予約に対する操作エラーを作成する
func AlreadyEnded(message string) *Error {
	return New(KindAlreadyEnded, message)
}

// Database はストレージ層の予期しない失敗を作成する
func Database(message string, cause error) *Error {
	return Wrap(KindDatabase, message, cause)
}

// KindOf はエラーから種別を取り出す
// apperror.Error でない場合は KindDatabase 扱いとし ok=false を返す
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindDatabase, false
}

// IsKind はエラーが指定種別かを返す
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
