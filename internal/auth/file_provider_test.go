package auth

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func writeUsers(t *testing.T, path string, users map[string]string) {
	t.Helper()
	file := map[string]map[string]map[string]string{"users": {}}
	for ext, password := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		file["users"][ext] = map[string]string{
			"password": string(hash),
			"name":     "Operator " + ext,
		}
	}
	data, err := json.Marshal(file)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestAuthenticate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	writeUsers(t, path, map[string]string{"1001": "secret"})

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, 1, p.UserCount())

	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		user, err := p.Authenticate(ctx, "1001", "secret")
		require.NoError(t, err)
		assert.Equal(t, "1001", user.Extension)
		assert.Equal(t, "Operator 1001", user.Name)
		assert.Empty(t, user.Password, "hash must never leave the provider")
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := p.Authenticate(ctx, "1001", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := p.Authenticate(ctx, "9999", "secret")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestMissingFile(t *testing.T) {
	_, err := NewFileProvider(filepath.Join(t.TempDir(), "nope.json"), nil)
	assert.Error(t, err)
}

func TestReloadOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	writeUsers(t, path, map[string]string{"1001": "secret"})

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	// Replace the file the way an editor does: write a temp file, rename it
	// into place.
	tmp := path + ".tmp"
	writeUsers(t, tmp, map[string]string{"1001": "secret", "1002": "hunter2"})
	require.NoError(t, os.Rename(tmp, path))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && p.UserCount() != 2 {
		time.Sleep(20 * time.Millisecond)
	}
	require.Equal(t, 2, p.UserCount(), "provider must pick up the replaced file")

	_, err = p.Authenticate(context.Background(), "1002", "hunter2")
	assert.NoError(t, err)
}

func TestBrokenReloadKeepsPreviousUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	writeUsers(t, path, map[string]string{"1001": "secret"})

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, p.UserCount())
	_, err = p.Authenticate(context.Background(), "1001", "secret")
	assert.NoError(t, err, "broken write must not drop the loaded user set")
}
