package auth

import (
	"log/slog"

	"github.com/frahmantamala/time-tracking/internal"
)

// Credentials is what the repository hands back for a login attempt.
type Credentials struct {
	UserID       int64
	Email        string
	PasswordHash string
	IsActive     bool
}

type Repository interface {
	GetCredentials(email string) (*Credentials, error)
	GetAuthUser(userID int64) (*User, error)
}

// TokenGenerator abstracts token creation and validation for the service.
type TokenGenerator interface {
	GenerateAccessToken(userID int64, email string) (string, error)
	GenerateRefreshToken(userID int64, email string) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

type Service struct {
	repo   Repository
	tokens TokenGenerator
	logger *slog.Logger
}

func NewService(repo Repository, tokens TokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		logger: logger,
	}
}

// Authenticate verifies credentials and issues an access/refresh token pair.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(dto LoginDTO) (*AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	creds, err := s.repo.GetCredentials(dto.Email)
	if err != nil {
		s.logger.Warn("login attempt for unknown email", "email", dto.Email)
		return nil, internal.ErrInvalidCredentials
	}
	if err := VerifyPassword(creds.PasswordHash, dto.Password); err != nil {
		s.logger.Warn("login attempt with wrong password", "user_id", creds.UserID)
		return nil, internal.ErrInvalidCredentials
	}
	if !creds.IsActive {
		return nil, internal.ErrUserInactive
	}

	return s.issueTokens(creds.UserID, creds.Email)
}

// RefreshTokens exchanges a valid refresh token for a fresh pair.
func (s *Service) RefreshTokens(dto RefreshDTO) (*AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	claims, err := s.tokens.ValidateRefreshToken(dto.RefreshToken)
	if err != nil {
		if err == ErrTokenExpired {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	user, err := s.repo.GetAuthUser(claims.UserID)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}

	return s.issueTokens(user.ID, user.Email)
}

// UserFromAccessToken resolves an access token to its user. Used by the
// auth middleware on every protected request.
func (s *Service) UserFromAccessToken(tokenString string) (*User, error) {
	claims, err := s.tokens.ValidateAccessToken(tokenString)
	if err != nil {
		if err == ErrTokenExpired {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	user, err := s.repo.GetAuthUser(claims.UserID)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}
	return user, nil
}

func (s *Service) issueTokens(userID int64, email string) (*AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(userID, email)
	if err != nil {
		s.logger.Error("failed to sign access token", "error", err, "user_id", userID)
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(userID, email)
	if err != nil {
		s.logger.Error("failed to sign refresh token", "error", err, "user_id", userID)
		return nil, err
	}
	return &AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}
