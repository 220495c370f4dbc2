package dto

import (
	"errors"
	"fmt"
	"strings"
)

type Auth struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a Auth) IsValid() error {
	var emailErr, passwordErr error

	if strings.TrimSpace(a.Email) == "" {
		emailErr = fmt.Errorf("email is required")
	}

	if strings.TrimSpace(a.Password) == "" {
		passwordErr = fmt.Errorf("password is required")
	}

	return errors.Join(emailErr, passwordErr)
}

type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (p PasswordChange) IsValid() error {
	var currentErr, newErr error

	if strings.TrimSpace(p.CurrentPassword) == "" {
		currentErr = fmt.Errorf("current password is required")
	}

	if strings.TrimSpace(p.NewPassword) == "" {
		newErr = fmt.Errorf("new password is required")
	}

	return errors.Join(currentErr, newErr)
}

type AccountDeletion struct {
	Password string `json:"password"`
}
