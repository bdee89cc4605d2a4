package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/Kodar11/Blog/pkg/errors"
)

func ptr(s string) *string { return &s }

func TestUserUpdate_IsEmpty(t *testing.T) {
	assert.True(t, UserUpdate{}.IsEmpty())
	assert.False(t, UserUpdate{RefreshToken: ptr("rt")}.IsEmpty())
	assert.False(t, UserUpdate{Email: ptr("a@b.c")}.IsEmpty())
}

func TestApplyFindOptions(t *testing.T) {
	assert.False(t, ApplyFindOptions().ExcludeSecrets)
	assert.True(t, ApplyFindOptions(ExcludeSecrets()).ExcludeSecrets)
}

func TestValidateUpdate(t *testing.T) {
	tests := []struct {
		name    string
		update  UserUpdate
		wantErr bool
	}{
		{"empty", UserUpdate{}, false},
		{"refresh token only", UserUpdate{RefreshToken: ptr("")}, false},
		{"valid email", UserUpdate{Email: ptr("alice@example.com")}, false},
		{"invalid email", UserUpdate{Email: ptr("not-an-email")}, true},
		{"blank email", UserUpdate{Email: ptr("")}, true},
		{"blank password hash", UserUpdate{PasswordHash: ptr("")}, true},
		{"password hash", UserUpdate{PasswordHash: ptr("$2a$10$x")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpdate(tt.update)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}
