package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gusesba/renova-web/internal/remote"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("login response has no token")
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type AuthStore interface {
	// Login exchanges the credentials for an API token.
	Login(ctx context.Context, creds Credentials) (string, error)
}

type RemoteAuthStore struct {
	client *remote.Client
}

func NewRemoteAuthStore(c *remote.Client) *RemoteAuthStore {
	return &RemoteAuthStore{client: c}
}

func (s *RemoteAuthStore) Login(ctx context.Context, creds Credentials) (string, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return "", ErrInvalidCredentials
	}

	var out loginResponse
	err := s.client.Create(ctx, "auth/login", creds, &out)
	var fe *remote.FetchError
	if errors.As(err, &fe) && (fe.StatusCode == http.StatusUnauthorized || fe.StatusCode == http.StatusBadRequest) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("logging in: %w", err)
	}
	if out.Token == "" {
		return "", ErrMissingToken
	}
	return out.Token, nil
}
