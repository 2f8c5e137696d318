// Package services contains server-side business logic. This file implements
// UserService: account registration with email verification, login, admin
// seeding, and issuing/refreshing JWTs plus server-stored refresh tokens.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode"

	"github.com/everkeep/everkeep/internal/common"
	"github.com/everkeep/everkeep/internal/dbx"
	"github.com/everkeep/everkeep/internal/logging"
	"github.com/everkeep/everkeep/internal/server/auth"
	"github.com/everkeep/everkeep/internal/server/config"
	"github.com/everkeep/everkeep/internal/server/models"
	"github.com/everkeep/everkeep/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// validateEmail checks the address shape without attempting delivery.
func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: invalid email address", common.ErrorValidation)
	}
	return nil
}

// validatePassword enforces the account password policy: at least 8
// characters containing an upper-case letter, a lower-case letter, and a
// digit.
func validatePassword(password string) error {
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if len(password) < 8 || !upper || !lower || !digit {
		return fmt.Errorf("%w: password must be at least 8 characters with upper, lower and digit", common.ErrorValidation)
	}
	return nil
}

// UserService provides authentication-related operations:
// - Register: create accounts and start email verification
// - VerifyEmail: redeem the one-time verification code
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
// - EnsureAdmin: seed the configured administrator account
type UserService struct {
	db                               *sql.DB
	repomanager                      repomanager.RepositoryManager
	notifier                         Notifier
	log                              logging.Logger
	jwtSecret                        []byte
	accessTokenValidityDuration      time.Duration
	refreshTokenValidityDuration     time.Duration
	verificationCodeValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, notifier Notifier, log logging.Logger) *UserService {
	return &UserService{
		db:                               db,
		repomanager:                      m,
		notifier:                         notifier,
		log:                              log.With("service", "user"),
		jwtSecret:                        []byte(cfg.SecretKey),
		accessTokenValidityDuration:      cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration:     cfg.RefreshTokenValidityDuration,
		verificationCodeValidityDuration: cfg.VerificationCodeValidityDuration,
	}
}

// Register creates a new unverified account and dispatches a one-time
// verification code. Taken email addresses yield ErrorConflict.
func (s *UserService) Register(ctx context.Context, email string, password string) (*models.User, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Users(s.db).GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", common.ErrorConflict)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.ErrorInternal
	}
	code, err := common.MakeVerificationCode(6)
	if err != nil {
		return nil, common.ErrorInternal
	}

	var user *models.User
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		u, err := repo.Create(ctx, &models.User{Email: email, PasswordHash: string(hash)})
		if err != nil {
			return err
		}
		if err := repo.SetVerification(ctx, u.ID, code, time.Now().Add(s.verificationCodeValidityDuration)); err != nil {
			return err
		}
		user = u
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.notifier.VerificationCode(ctx, email, code); err != nil {
		s.log.Error(ctx, "verification code delivery failed", "email", email, "error", err)
	}
	return user, nil
}

// VerifyEmail redeems a verification code. Wrong or expired codes yield
// ErrorUnauthorized; absent accounts the same, to avoid disclosing which.
func (s *UserService) VerifyEmail(ctx context.Context, email string, code string) error {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return common.ErrorInternal
	}
	if user.EmailVerified {
		return nil
	}
	if user.VerificationCode == "" || user.VerificationExpires == nil ||
		user.VerificationExpires.Before(time.Now()) {
		return common.ErrorUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(user.VerificationCode), []byte(code)) != 1 {
		return common.ErrorUnauthorized
	}
	if err := repo.MarkVerified(ctx, user.ID); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// Login verifies the credentials and, on success, returns a new TokenPair.
// Unverified accounts cannot log in.
func (s *UserService) Login(ctx context.Context, email string, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, common.ErrorUnauthorized
	}
	if !user.EmailVerified {
		return nil, common.ErrorUnauthorized
	}
	return s.generateTokenPair(ctx, user, s.db)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %v", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %v", err)
		}
		if err := repoTx.DeleteExpired(ctx); err != nil {
			return fmt.Errorf("error sweeping expired tokens: %v", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// EnsureAdmin creates the administrator account if it does not exist yet.
// Administrators are seeded verified.
func (s *UserService) EnsureAdmin(ctx context.Context, email string, password string) error {
	if email == "" || password == "" {
		return nil
	}
	repo := s.repomanager.Users(s.db)
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return common.ErrorInternal
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return common.ErrorInternal
	}
	if _, err := repo.Create(ctx, &models.User{
		Email:         email,
		PasswordHash:  string(hash),
		IsAdmin:       true,
		EmailVerified: true,
	}); err != nil {
		return err
	}
	s.log.Info(ctx, "administrator account seeded", "email", email)
	return nil
}

// --- helpers below ---

func (s *UserService) generateAccessToken(user *models.User) (string, error) {
	return auth.GenerateToken(user.ID, user.IsAdmin, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, db dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(db)
	if err := refreshRepo.Create(ctx, user.ID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
