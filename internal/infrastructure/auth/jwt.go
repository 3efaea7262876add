package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
)

// Identity は認証済みの呼び出し元を表す
type Identity struct {
	CustomerID int64
	Role       string
	IssuedAt   time.Time
}

// IsAdmin は管理者ロールかを返す
func (i *Identity) IsAdmin() bool {
	return i.Role == "admin"
}

// Claims はアクセストークンのクレーム
type Claims struct {
	CustomerID int64  `json:"customer_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier はアクセストークンの検証を行う
// トークンの発行・資格情報の保管はこのサービスの責務外で、
// 検証結果（誰か・どのロールか）だけを提供する
type TokenVerifier struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenVerifier は新しい TokenVerifier を作成する
func NewTokenVerifier(secret string, ttl time.Duration) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), ttl: ttl}
}

// Verify はトークン文字列を検証し Identity を返す
func (v *TokenVerifier) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.AuthenticationFailed("トークンが無効です")
	}

	issuedAt := time.Time{}
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	return &Identity{
		CustomerID: claims.CustomerID,
		Role:       claims.Role,
		IssuedAt:   issuedAt,
	}, nil
}

// Sign は検証可能なトークンを発行する
// 本来の発行経路は外部の認証基盤で、ここではテストとローカル動作確認に使う
func (v *TokenVerifier) Sign(customerID int64, role string, now time.Time) (string, error) {
	claims := &Claims{
		CustomerID: customerID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
