package pin

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt(t *testing.T) {
	v := NewBcrypt(bcrypt.MinCost)

	hash, err := v.Hash(1111)
	require.NoError(t, err)
	require.True(t, v.Verify(hash, 1111))
	require.False(t, v.Verify(hash, 1112))
	require.False(t, v.Verify([]byte("not a hash"), 1111))
}

func TestBcrypt_LeadingZeros(t *testing.T) {
	v := NewBcrypt(bcrypt.MinCost)

	hash, err := v.Hash(123)
	require.NoError(t, err)
	require.True(t, v.Verify(hash, 123))
	require.False(t, v.Verify(hash, 1230))
}

func TestBcrypt_OutOfRange(t *testing.T) {
	v := NewBcrypt(0)
	require.Equal(t, bcrypt.DefaultCost, v.Cost)

	_, err := v.Hash(-1)
	require.ErrorIs(t, err, ErrInvalidPIN)
	_, err = v.Hash(MaxPIN + 1)
	require.ErrorIs(t, err, ErrInvalidPIN)
	require.False(t, v.Verify(nil, -1))
}
