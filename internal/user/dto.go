package user

import (
	"errors"
	"strings"
)

type RegisterDTO struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (d *RegisterDTO) Validate() error {
	d.Email = strings.TrimSpace(strings.ToLower(d.Email))
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)

	if d.Email == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(d.Email, "@") {
		return errors.New("email is invalid")
	}
	if len(d.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if d.FirstName == "" {
		return errors.New("first_name is required")
	}
	return nil
}

type UpdateProfileDTO struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

func (d *UpdateProfileDTO) Validate() error {
	if d.FirstName != nil && strings.TrimSpace(*d.FirstName) == "" {
		return errors.New("first_name cannot be empty")
	}
	return nil
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (d *ChangePasswordDTO) Validate() error {
	if d.CurrentPassword == "" {
		return errors.New("current_password is required")
	}
	if len(d.NewPassword) < 8 {
		return errors.New("new_password must be at least 8 characters")
	}
	return nil
}
