package repository

import (
	"fmt"

	apperrors "github.com/Kodar11/Blog/pkg/errors"
	"github.com/Kodar11/Blog/pkg/validator"
)

type userUpdateRules struct {
	Email        *string `json:"email" validate:"omitnil,email"`
	PasswordHash *string `json:"password" validate:"omitnil,min=1"`
}

// ValidateUpdate checks the fields a UserUpdate would write. Stores call it
// unless UpdateOptions.SkipValidation is set.
func ValidateUpdate(update UserUpdate) error {
	rules := userUpdateRules{Email: update.Email, PasswordHash: update.PasswordHash}
	if err := validator.Validate(rules); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return nil
}
