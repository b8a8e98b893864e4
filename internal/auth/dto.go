package auth

import (
	"errors"
	"strings"
)

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d *LoginDTO) Validate() error {
	d.Email = strings.TrimSpace(strings.ToLower(d.Email))
	if d.Email == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(d.Email, "@") {
		return errors.New("email is invalid")
	}
	if d.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

type RefreshDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d *RefreshDTO) Validate() error {
	if strings.TrimSpace(d.RefreshToken) == "" {
		return errors.New("refresh_token is required")
	}
	return nil
}
