// Package identity manages user identities: sign-up, credential checks,
// password changes and deletion. Sensitive operations require a fresh
// reauthentication with the current password.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Gagansidh-u/studio/internal/domain"
	"github.com/Gagansidh-u/studio/internal/store"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

const (
	identitiesCollection = "identities"
	emailsCollection     = "identity_emails"

	bcryptCost = 14
)

type Identity struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}

type Provider interface {
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
	Identity(ctx context.Context, userID string) (Identity, error)
	Reauthenticate(ctx context.Context, userID, password string) error
	ChangePassword(ctx context.Context, userID, newPassword string) error
	DeleteIdentity(ctx context.Context, userID string) error
	SendEmailVerification(ctx context.Context, userID string) error
}

// record is the persisted shape of an identity document.
type record struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Password      string    `json:"password"`
	Name          string    `json:"name,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	RegisteredAt  time.Time `json:"registeredAt"`
}

func (r record) identity() Identity {
	return Identity{ID: r.ID, Email: r.Email, Name: r.Name, EmailVerified: r.EmailVerified}
}

// emailRef maps an email address to its identity id so sign-in stays a
// point read.
type emailRef struct {
	ID string `json:"id"`
}

type StoreProvider struct {
	store store.Store
}

func NewStoreProvider(s store.Store) *StoreProvider {
	return &StoreProvider{store: s}
}

func (p *StoreProvider) SignUp(ctx context.Context, email, password string) (Identity, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		logger.Log.Warn("error while hashing password")
		return Identity{}, fmt.Errorf("error while hashing password: %w", err)
	}

	rec := record{
		ID:           uuid.NewString(),
		Email:        email,
		Password:     string(hashedPassword),
		RegisteredAt: time.Now(),
	}

	// The email mapping and identity document are created together so a
	// duplicate sign-up can never claim an already-mapped address.
	err = p.store.RunTransaction(ctx, func(txn store.Txn) error {
		_, err := txn.Get(emailsCollection, email)
		if err == nil {
			return domain.ErrUserExists
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if err := txn.Set(emailsCollection, email, emailRef{ID: rec.ID}); err != nil {
			return err
		}
		return txn.Set(identitiesCollection, rec.ID, rec)
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			logger.Log.Warn("user already exists", logger.String("email", email))
			return Identity{}, domain.ErrUserExists
		}
		return Identity{}, fmt.Errorf("error creating identity: %w", err)
	}

	return rec.identity(), nil
}

func (p *StoreProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	ref, err := p.emailRef(ctx, email)
	if err != nil {
		return Identity{}, err
	}

	rec, err := p.record(ctx, ref.ID)
	if err != nil {
		return Identity{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.Password), []byte(password)); err != nil {
		logger.Log.Warn("incorrect password", logger.String("email", email))
		return Identity{}, domain.ErrIncorrectCredentials
	}

	return rec.identity(), nil
}

func (p *StoreProvider) Identity(ctx context.Context, userID string) (Identity, error) {
	rec, err := p.record(ctx, userID)
	if err != nil {
		return Identity{}, err
	}
	return rec.identity(), nil
}

func (p *StoreProvider) Reauthenticate(ctx context.Context, userID, password string) error {
	rec, err := p.record(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.Password), []byte(password)); err != nil {
		return domain.ErrReauthenticationRequired
	}

	return nil
}

func (p *StoreProvider) ChangePassword(ctx context.Context, userID, newPassword string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("error while hashing password: %w", err)
	}

	err = p.store.Update(ctx, identitiesCollection, userID, map[string]any{
		"password": string(hashedPassword),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrIdentityNotFound
		}
		return fmt.Errorf("error updating password: %w", err)
	}

	return nil
}

func (p *StoreProvider) DeleteIdentity(ctx context.Context, userID string) error {
	rec, err := p.record(ctx, userID)
	if err != nil {
		return err
	}

	err = p.store.RunTransaction(ctx, func(txn store.Txn) error {
		if err := txn.Delete(emailsCollection, rec.Email); err != nil {
			return err
		}
		return txn.Delete(identitiesCollection, userID)
	})
	if err != nil {
		return fmt.Errorf("error deleting identity: %w", err)
	}

	return nil
}

// SendEmailVerification marks the identity verified. Actual mail delivery
// is out of scope, so the flag flips immediately.
func (p *StoreProvider) SendEmailVerification(ctx context.Context, userID string) error {
	err := p.store.Update(ctx, identitiesCollection, userID, map[string]any{
		"emailVerified": true,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrIdentityNotFound
		}
		return fmt.Errorf("error marking email verified: %w", err)
	}

	logger.Log.Info("verification email requested", logger.String("user_id", userID))
	return nil
}

func (p *StoreProvider) emailRef(ctx context.Context, email string) (emailRef, error) {
	doc, err := p.store.Get(ctx, emailsCollection, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return emailRef{}, domain.ErrIncorrectCredentials
		}
		return emailRef{}, fmt.Errorf("error fetching identity reference: %w", err)
	}

	var ref emailRef
	if err := doc.Decode(&ref); err != nil {
		return emailRef{}, err
	}
	return ref, nil
}

func (p *StoreProvider) record(ctx context.Context, userID string) (record, error) {
	doc, err := p.store.Get(ctx, identitiesCollection, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return record{}, domain.ErrIdentityNotFound
		}
		return record{}, fmt.Errorf("error fetching identity: %w", err)
	}

	var rec record
	if err := doc.Decode(&rec); err != nil {
		return record{}, err
	}
	return rec, nil
}
