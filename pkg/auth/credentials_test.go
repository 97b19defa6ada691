package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func clearAuthEnv(t *testing.T) {
	for _, key := range []string{EnvUsername, EnvPassword, EnvSessionID, EnvCSRFToken} {
		t.Setenv(key, "")
	}
}

func TestCredentialManager(t *testing.T) {
	clearAuthEnv(t)
	store := NewMemoryStore()
	manager := NewManagerWithStores(store)

	account := &Account{Username: "analyst", Password: "hunter2"}
	require.NoError(t, manager.Store(account))
	assert.False(t, account.LastModified.IsZero())

	retrieved, err := manager.Retrieve("analyst")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", retrieved.Password)

	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	require.NoError(t, manager.Delete("analyst"))
	_, err = manager.Retrieve("analyst")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.Equal(t, 0, store.Count())
}

func TestManagerStoreValidation(t *testing.T) {
	manager := NewManagerWithStores(NewMemoryStore())

	tests := []struct {
		name    string
		account *Account
		wantErr bool
	}{
		{"nil account", nil, true},
		{"missing username", &Account{Password: "x"}, true},
		{"no secret", &Account{Username: "a"}, true},
		{"session id without csrf", &Account{Username: "a", SessionID: "s"}, true},
		{"password", &Account{Username: "a", Password: "p"}, false},
		{"cookies", &Account{Username: "a", SessionID: "s", CSRFToken: "c"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := manager.Store(tt.account)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestManagerFallsThroughFailingStore(t *testing.T) {
	broken := NewMemoryStore()
	broken.StoreError = errors.New("locked")
	backup := NewMemoryStore()
	manager := NewManagerWithStores(broken, backup)

	require.NoError(t, manager.Store(&Account{Username: "a", Password: "p"}))
	assert.Equal(t, 0, broken.Count())
	assert.True(t, backup.Exists("a"))
}

func TestManagerListNewestFirst(t *testing.T) {
	clearAuthEnv(t)
	first := NewMemoryStore()
	second := NewMemoryStore()
	now := time.Now()

	require.NoError(t, first.Store(&Account{Username: "old", Password: "p", LastModified: now.Add(-time.Hour)}))
	require.NoError(t, first.Store(&Account{Username: "dup", Password: "stale", LastModified: now.Add(-2 * time.Hour)}))
	require.NoError(t, second.Store(&Account{Username: "dup", Password: "fresh", LastModified: now}))

	manager := NewManagerWithStores(first, second)
	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "dup", accounts[0].Username)
	assert.Equal(t, "fresh", accounts[0].Password)

	def, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "dup", def.Username)
}

func TestManagerDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv(EnvUsername, "envuser")
	t.Setenv(EnvPassword, "envpass")
	t.Setenv(EnvSessionID, "")
	t.Setenv(EnvCSRFToken, "")

	store := NewMemoryStore()
	require.NoError(t, store.Store(&Account{Username: "stored", Password: "p", LastModified: time.Now()}))
	manager := NewManagerWithStores(store, NewEnvironmentStore())

	def, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "envuser", def.Username)

	accounts, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1, "environment account is not listed as stored")
}

func TestManagerDeleteMissing(t *testing.T) {
	manager := NewManagerWithStores(NewMemoryStore(), NewEnvironmentStore())
	err := manager.Delete("ghost")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestManagerDeleteAll(t *testing.T) {
	clearAuthEnv(t)
	store := NewMemoryStore()
	manager := NewManagerWithStores(store)
	require.NoError(t, manager.Store(&Account{Username: "a", Password: "p"}))
	require.NoError(t, manager.Store(&Account{Username: "b", Password: "p"}))

	require.NoError(t, manager.DeleteAll())
	assert.Equal(t, 0, store.Count())
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "creds", "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	account := &Account{Username: "encrypted_user", Password: "plain_password", SessionID: "encrypted_session", CSRFToken: "encrypted_csrf"}
	require.NoError(t, store.Store(account))

	retrieved, err := store.Retrieve("encrypted_user")
	require.NoError(t, err)
	assert.Equal(t, account.Password, retrieved.Password)
	assert.Equal(t, account.SessionID, retrieved.SessionID)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "plain_password")
	assert.NotContains(t, string(content), "encrypted_session")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	assert.True(t, reopened.Exists("encrypted_user"))

	require.NoError(t, store.Delete("encrypted_user"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file removed with the last account")
	assert.ErrorIs(t, store.Delete("encrypted_user"), ErrCredentialsNotFound)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(PassphraseEnv, "right")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Username: "a", Password: "p"}))

	t.Setenv(PassphraseEnv, "wrong")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Username: "a", Password: "p"}))

	passphrase, err := os.ReadFile(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.NotEmpty(t, passphrase)

	again, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	assert.True(t, again.Exists("a"))
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(EnvUsername, "")
	t.Setenv(EnvPassword, "")
	t.Setenv(EnvSessionID, "env_session")
	t.Setenv(EnvCSRFToken, "env_csrf")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("someone")
	require.NoError(t, err)
	assert.Equal(t, "someone", account.Username)
	assert.Equal(t, "env_session", account.SessionID)
	assert.True(t, account.HasCookies())

	assert.ErrorIs(t, store.Store(&Account{}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("someone"), ErrStoreUnavailable)

	t.Setenv(EnvUsername, "pinned")
	_, err = store.Retrieve("someone")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.True(t, store.Exists("pinned"))
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(&Account{Username: "b", Password: "pb"}))
	require.NoError(t, store.Store(&Account{Username: "a", Password: "pa"}))

	accounts, err := store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "a", accounts[0].Username)

	got, err := store.Retrieve("b")
	require.NoError(t, err)
	assert.Equal(t, "pb", got.Password)

	require.NoError(t, store.Delete("b"))
	assert.False(t, store.Exists("b"))
	assert.ErrorIs(t, store.Delete("b"), ErrCredentialsNotFound)

	accounts, err = store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestMemoryStoreErrorInjection(t *testing.T) {
	store := NewMemoryStore()
	store.ListError = errors.New("injected error")

	_, err := store.List()
	assert.EqualError(t, err, "injected error")
}

func TestSanitizeAccount(t *testing.T) {
	account := &Account{
		Username:  "analyst",
		Password:  "hunter2",
		SessionID: "1234567890abcdef",
		CSRFToken: "short",
	}

	masked := SanitizeAccount(account)
	assert.Equal(t, "analyst", masked.Username)
	assert.Equal(t, "********", masked.Password)
	assert.Equal(t, "1234...cdef", masked.SessionID)
	assert.Equal(t, "********", masked.CSRFToken)
	assert.Nil(t, SanitizeAccount(nil))

	bare := SanitizeAccount(&Account{Username: "x", Password: "p"})
	assert.Empty(t, bare.SessionID)
}

func TestWriteCookieGuide(t *testing.T) {
	var buf bytes.Buffer
	WriteCookieGuide(&buf)
	assert.Contains(t, buf.String(), "sessionid")
	assert.Contains(t, buf.String(), "csrftoken")
}
