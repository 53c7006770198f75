package password

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{name: "regular password", password: "password123"},
		{name: "special chars", password: "p@ssw0rd!@#$%^&*()"},
		{name: "accents", password: "mötdepässé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := GetHash(tt.password)
			require.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)
			assert.NoError(t, CompareHash(hash, tt.password))
		})
	}
}

func TestGetHash_Salted(t *testing.T) {
	first, err := GetHash("same_password")
	require.NoError(t, err)
	second, err := GetHash("same_password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCompareHash(t *testing.T) {
	hash, err := GetHash("correct_password")
	require.NoError(t, err)

	tests := []struct {
		name         string
		hash         string
		password     string
		wantErr      bool
		wantMismatch bool
	}{
		{name: "correct password", hash: hash, password: "correct_password"},
		{name: "wrong password", hash: hash, password: "wrong_password", wantErr: true, wantMismatch: true},
		{name: "empty password", hash: hash, password: "", wantErr: true, wantMismatch: true},
		{name: "malformed hash", hash: "not-a-bcrypt-hash", password: "correct_password", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CompareHash(tt.hash, tt.password)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantMismatch, errors.Is(err, ErrMismatch))
		})
	}
}
