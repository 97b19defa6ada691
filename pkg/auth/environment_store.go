package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvUsername  = "OSINTGRAM_USERNAME"
	EnvPassword  = "OSINTGRAM_PASSWORD"
	EnvSessionID = "OSINTGRAM_SESSION_ID"
	EnvCSRFToken = "OSINTGRAM_CSRF_TOKEN"
)

// EnvironmentStore is a read-only store backed by environment variables
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(*Account) error {
	return ErrStoreUnavailable
}

// Retrieve builds an account from the environment. A non-empty username must
// match OSINTGRAM_USERNAME when that is set.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	account := &Account{
		Username:     os.Getenv(EnvUsername),
		Password:     os.Getenv(EnvPassword),
		SessionID:    os.Getenv(EnvSessionID),
		CSRFToken:    os.Getenv(EnvCSRFToken),
		LastModified: time.Now(),
	}
	if !account.HasPassword() && !account.HasCookies() {
		return nil, ErrCredentialsNotFound
	}

	switch {
	case username != "" && account.Username != "" && account.Username != username:
		return nil, ErrCredentialsNotFound
	case account.Username == "":
		account.Username = username
	}
	return account, nil
}

// List returns the environment account, if any
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}
