package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	for _, size := range []int{TokenSize128, TokenSize256, TokenSize512, 24} {
		token, err := GenerateToken(size)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		token2, err := GenerateToken(size)
		require.NoError(t, err)
		require.NotEqual(t, token, token2, "tokens should be unique")
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestFingerprintToken(t *testing.T) {
	fp1a := FingerprintToken("123456")
	fp1b := FingerprintToken("123456")
	fp2 := FingerprintToken("654321")

	require.Equal(t, fp1a, fp1b, "fingerprint should be deterministic")
	require.NotEqual(t, fp1a, fp2)
	require.Len(t, fp1a, 43, "SHA-256 base64url should be 43 chars")
}

func TestRandomInt(t *testing.T) {
	for range 1000 {
		n, err := RandomInt(100000, 999999)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, int64(100000))
		require.LessOrEqual(t, n, int64(999999))
	}

	n, err := RandomInt(7, 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), n)

	_, err = RandomInt(10, 1)
	require.Error(t, err)
}
