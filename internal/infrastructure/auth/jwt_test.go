package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-book-reservation/internal/apperror"
)

func TestTokenVerifier_SignAndVerify(t *testing.T) {
	verifier := NewTokenVerifier("test-secret", 30*time.Minute)
	issuedAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("署名したトークンを検証できる", func(t *testing.T) {
		token, err := verifier.Sign(42, "customer", time.Now())
		require.NoError(t, err)

		identity, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), identity.CustomerID)
		assert.Equal(t, "customer", identity.Role)
		assert.False(t, identity.IsAdmin())
	})

	t.Run("発行時刻がIdentityに載る", func(t *testing.T) {
		// 期限内に収まるよう現在に近い発行時刻を使う
		now := time.Now().Truncate(time.Second)
		token, err := verifier.Sign(1, "admin", now)
		require.NoError(t, err)

		identity, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.True(t, identity.IsAdmin())
		assert.WithinDuration(t, now, identity.IssuedAt, time.Second)
	})

	t.Run("別の鍵で署名されたトークンは拒否する", func(t *testing.T) {
		other := NewTokenVerifier("other-secret", 30*time.Minute)
		token, err := other.Sign(1, "customer", time.Now())
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindAuthenticationFailed))
	})

	t.Run("期限切れは拒否する", func(t *testing.T) {
		token, err := verifier.Sign(1, "customer", issuedAt)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindAuthenticationFailed))
	})

	t.Run("壊れたトークンは拒否する", func(t *testing.T) {
		_, err := verifier.Verify("not.a.token")
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindAuthenticationFailed))
	})
}
