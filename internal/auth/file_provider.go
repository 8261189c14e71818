package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/crypto/bcrypt"

	"github.com/enmanuelbasulto/fop2-clone/internal/models"
)

// usersFile mirrors the on-disk layout: extensions keyed to bcrypt hashes.
type usersFile struct {
	Users map[string]struct {
		Password string `json:"password"`
		Name     string `json:"name"`
	} `json:"users"`
}

// FileProvider authenticates against a JSON users file and reloads it when
// the file changes on disk.
type FileProvider struct {
	path   string
	logger *log.Logger

	mu    sync.RWMutex
	users map[string]models.User

	watcher *fsnotify.Watcher
}

// NewFileProvider loads the users file and starts watching it for changes.
func NewFileProvider(path string, logger *log.Logger) (*FileProvider, error) {
	if logger == nil {
		logger = log.Default()
	}
	p := &FileProvider{path: path, logger: logger}
	if err := p.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("auth: watch users file: %w", err)
	}
	// Watch the directory: editors replace the file rather than write into
	// it, which would otherwise drop the watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("auth: watch users dir: %w", err)
	}
	p.watcher = watcher
	go p.watch()
	return p, nil
}

// Authenticate implements Provider using bcrypt comparison.
func (p *FileProvider) Authenticate(ctx context.Context, extension, password string) (*models.User, error) {
	p.mu.RLock()
	user, ok := p.users[extension]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	out := user
	out.Password = ""
	return &out, nil
}

// UserCount reports how many operators are loaded.
func (p *FileProvider) UserCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users)
}

// Close stops the file watcher.
func (p *FileProvider) Close() error {
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}

func (p *FileProvider) load() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("auth: read users file: %w", err)
	}
	var file usersFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("auth: parse users file: %w", err)
	}

	users := make(map[string]models.User, len(file.Users))
	for ext, u := range file.Users {
		users[ext] = models.User{Extension: ext, Name: u.Name, Password: u.Password}
	}

	p.mu.Lock()
	p.users = users
	p.mu.Unlock()
	p.logger.Printf("auth: loaded %d user(s) from %s", len(users), p.path)
	return nil
}

func (p *FileProvider) watch() {
	for {
		select {
		case ev, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(p.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := p.load(); err != nil {
				// Keep serving the previous user set on a broken write.
				p.logger.Printf("auth: reload failed: %v", err)
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Printf("auth: watcher error: %v", err)
		}
	}
}
