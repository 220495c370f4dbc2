package service

import (
	"context"
	"fmt"

	"github.com/dgrijalva/jwt-go"

	"github.com/Gagansidh-u/studio/internal/config"
	"github.com/Gagansidh-u/studio/internal/identity"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

type UserService struct {
	config   *config.Config
	provider identity.Provider
	wallets  *WalletService
}

func NewUserService(provider identity.Provider, wallets *WalletService, config *config.Config) *UserService {
	return &UserService{
		config:   config,
		provider: provider,
		wallets:  wallets,
	}
}

// Register creates the identity and its zero-state wallet and returns a
// signed token. A verification email failure is logged but does not fail
// registration.
func (s *UserService) Register(ctx context.Context, email, password string) (string, error) {
	id, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		return "", err
	}

	if _, err := s.wallets.EnsureWallet(ctx, id); err != nil {
		return "", err
	}

	if err := s.provider.SendEmailVerification(ctx, id.ID); err != nil {
		logger.Log.Warn("error sending verification email",
			logger.String("user_id", id.ID),
			logger.Error(err))
	}

	return generateJWTToken(id.ID, s.config.PrivateKey)
}

// Login authenticates and returns a signed token. The wallet is ensured
// on every login so accounts created before wallets existed get one.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	id, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return "", err
	}

	if _, err := s.wallets.EnsureWallet(ctx, id); err != nil {
		return "", err
	}

	return generateJWTToken(id.ID, s.config.PrivateKey)
}

func (s *UserService) Identity(ctx context.Context, userID string) (identity.Identity, error) {
	return s.provider.Identity(ctx, userID)
}

// IsAdmin reports whether the user is the configured admin account.
func (s *UserService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	id, err := s.provider.Identity(ctx, userID)
	if err != nil {
		return false, err
	}
	return id.Email == s.config.AdminEmail, nil
}

func (s *UserService) ResendEmailVerification(ctx context.Context, userID string) error {
	return s.provider.SendEmailVerification(ctx, userID)
}

func generateJWTToken(userID, privateKey string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(privateKey))
	if err != nil {
		return "", fmt.Errorf("error while signing token: %w", err)
	}

	return signedToken, nil
}
