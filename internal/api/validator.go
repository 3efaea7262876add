package api

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
)

// CustomValidator はEcho用のカスタムバリデーター
// バリデーション失敗はフィールド単位の詳細を持つ InvalidRequest に変換する
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator は新しいバリデーターを作成する
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate はリクエストのバリデーションを実行する
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperror.InvalidRequest("リクエストの形式が不正です")
	}

	details := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fmt.Sprintf("%s制約に違反しています", fe.Tag())
	}

	return apperror.InvalidRequest("リクエストの検証に失敗しました").WithDetails(details)
}
