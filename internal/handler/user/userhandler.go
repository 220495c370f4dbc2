package userhandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Gagansidh-u/studio/internal/domain"
	"github.com/Gagansidh-u/studio/pkg/dto"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

type userService interface {
	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	ResendEmailVerification(ctx context.Context, userID string) error
}

type accountService interface {
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	DeleteAccount(ctx context.Context, userID, password string) error
}

type UserHandler struct {
	srv      userService
	accounts accountService
}

func New(srv userService, accounts accountService) *UserHandler {
	return &UserHandler{
		srv:      srv,
		accounts: accounts,
	}
}

func (uh *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var auth dto.Auth

	if err := json.NewDecoder(r.Body).Decode(&auth); err != nil {
		logger.Log.Warn("error while decoding a register request")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return
	}
	defer closeBody(r.Body)

	if err := auth.IsValid(); err != nil {
		logger.Log.Warn("invalid auth fields", logger.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := uh.srv.Register(r.Context(), auth.Email, auth.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			http.Error(w, "user already exists", http.StatusConflict)
			return
		}

		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.WriteHeader(http.StatusOK)
}

func (uh *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var auth dto.Auth

	if err := json.NewDecoder(r.Body).Decode(&auth); err != nil {
		logger.Log.Warn("error while decoding a login request")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return
	}
	defer closeBody(r.Body)

	if err := auth.IsValid(); err != nil {
		logger.Log.Warn("invalid auth fields", logger.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := uh.srv.Login(r.Context(), auth.Email, auth.Password)
	if err != nil {
		if errors.Is(err, domain.ErrIncorrectCredentials) {
			http.Error(w, "incorrect email or password", http.StatusUnauthorized)
			return
		}

		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.WriteHeader(http.StatusOK)
}

func (uh *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-ID")

	var change dto.PasswordChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		logger.Log.Warn("error while decoding a password change request")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	defer closeBody(r.Body)

	if err := change.IsValid(); err != nil {
		logger.Log.Warn("invalid password change fields", logger.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := uh.accounts.ChangePassword(r.Context(), userID, change.CurrentPassword, change.NewPassword)
	if err != nil {
		if errors.Is(err, domain.ErrReauthenticationRequired) {
			http.Error(w, "current password is incorrect", http.StatusForbidden)
			return
		}

		logger.Log.Error("error while changing password", logger.String("user_id", userID), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (uh *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-ID")

	var deletion dto.AccountDeletion
	if err := json.NewDecoder(r.Body).Decode(&deletion); err != nil {
		logger.Log.Warn("error while decoding an account deletion request")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	defer closeBody(r.Body)

	err := uh.accounts.DeleteAccount(r.Context(), userID, deletion.Password)
	if err != nil {
		if errors.Is(err, domain.ErrReauthenticationRequired) {
			http.Error(w, "password is incorrect", http.StatusForbidden)
			return
		}

		logger.Log.Error("error while deleting account", logger.String("user_id", userID), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (uh *UserHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("User-ID")

	if err := uh.srv.ResendEmailVerification(r.Context(), userID); err != nil {
		logger.Log.Error("error while sending verification email", logger.String("user_id", userID), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		logger.Log.Error("error while closing request body", logger.Error(err))
	}
}
