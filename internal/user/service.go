package user

import (
	"log/slog"
	"time"

	"github.com/frahmantamala/time-tracking/internal"
	"github.com/frahmantamala/time-tracking/internal/auth"
)

type Repository interface {
	Create(u *User) error
	GetByID(userID int64) (*User, error)
	Update(u *User) error
}

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates a new account. The email must be unique; the database
// enforces that and the repository reports ErrEmailTaken.
func (s *Service) Register(dto RegisterDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, err
	}

	u := &User{
		Email:        dto.Email,
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := s.repo.Create(u); err != nil {
		if err == ErrEmailTaken {
			return nil, internal.NewConflictError("email is already registered", internal.ErrCodeEmailTaken)
		}
		s.logger.Error("failed to create user", "error", err)
		return nil, err
	}

	s.logger.Info("user registered", "user_id", u.ID)
	return u, nil
}

func (s *Service) GetByID(userID int64) (*User, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	}
	return u, nil
}

func (s *Service) UpdateProfile(userID int64, dto UpdateProfileDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	}

	if dto.FirstName != nil {
		u.FirstName = *dto.FirstName
	}
	if dto.LastName != nil {
		u.LastName = *dto.LastName
	}
	u.UpdatedAt = time.Now()

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update profile", "error", err, "user_id", userID)
		return nil, err
	}
	return u, nil
}

// ChangePassword requires the current password before accepting a new one.
func (s *Service) ChangePassword(userID int64, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	u, err := s.repo.GetByID(userID)
	if err != nil {
		return internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	}
	if err := auth.VerifyPassword(u.PasswordHash, dto.CurrentPassword); err != nil {
		return internal.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err, "user_id", userID)
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now()

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to change password", "error", err, "user_id", userID)
		return err
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}
