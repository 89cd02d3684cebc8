package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/datamat-io/tokenkeeper/internal/core/domain"
	"github.com/datamat-io/tokenkeeper/internal/core/ports/driven"
	"github.com/datamat-io/tokenkeeper/internal/logger"
)

// Ensure TenantStore implements the interface.
var _ driven.TenantStore = (*TenantStore)(nil)

// TenantStore reads per-tenant OAuth configuration from TOML files.
type TenantStore struct {
	mu      sync.RWMutex
	dir     string
	cache   map[string]domain.TenantCredentials
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewTenantStore creates a tenant store under configDir. If configDir is
// empty, defaults to ~/.tokenkeeper. Tenant files live in a tenants/
// subdirectory. The watcher is best effort; when it cannot start, reads
// simply skip the cache.
func NewTenantStore(configDir string) (*TenantStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".tokenkeeper")
	}
	dir := filepath.Join(configDir, "tenants")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	s := &TenantStore{
		dir:   dir,
		cache: make(map[string]domain.TenantCredentials),
		done:  make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(dir); err == nil {
			s.watcher = watcher
			go s.watch()
		} else {
			watcher.Close()
			logger.Warn("tenant config watcher disabled: %v", err)
		}
	} else {
		logger.Warn("tenant config watcher disabled: %v", err)
	}

	return s, nil
}

// Dir returns the directory holding tenant configuration files.
func (s *TenantStore) Dir() string { return s.dir }

// Close stops the configuration watcher.
func (s *TenantStore) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *TenantStore) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			tenant := strings.TrimSuffix(filepath.Base(event.Name), ".toml")
			s.mu.Lock()
			delete(s.cache, tenant)
			s.mu.Unlock()
			logger.Debug("tenant config for %s changed on disk, cache invalidated", tenant)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("tenant config watcher: %v", err)
		}
	}
}

func (s *TenantStore) path(tenant string) string {
	return filepath.Join(s.dir, tenant+".toml")
}

// Get returns the tenant's validated configuration. Unknown tenants return
// domain.ErrNotFound; incomplete files return *domain.ConfigError so the
// caller fails fast instead of attempting a doomed exchange.
func (s *TenantStore) Get(tenant string) (*domain.TenantCredentials, error) {
	if s.watcher != nil {
		s.mu.RLock()
		if creds, ok := s.cache[tenant]; ok {
			s.mu.RUnlock()
			return &creds, nil
		}
		s.mu.RUnlock()
	}

	data, err := os.ReadFile(s.path(tenant))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("tenant %s: %w", tenant, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var creds domain.TenantCredentials
	if err := toml.Unmarshal(data, &creds); err != nil {
		return nil, &domain.ConfigError{Tenant: tenant, Reason: fmt.Sprintf("invalid TOML: %v", err)}
	}
	creds.Tenant = tenant
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	if s.watcher != nil {
		s.mu.Lock()
		s.cache[tenant] = creds
		s.mu.Unlock()
	}
	copied := creds
	return &copied, nil
}

// List returns the identifiers of all configured tenants.
func (s *TenantStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var tenants []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".toml") {
			continue
		}
		tenants = append(tenants, strings.TrimSuffix(name, ".toml"))
	}
	return tenants, nil
}

// Save writes the tenant's configuration file with owner-only permissions;
// it carries the client secret.
func (s *TenantStore) Save(creds domain.TenantCredentials) error {
	if creds.Tenant == "" {
		return &domain.ConfigError{Reason: "tenant identifier is empty"}
	}
	if err := creds.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(creds)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(creds.Tenant), data, 0600); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.cache, creds.Tenant)
	s.mu.Unlock()
	return nil
}

// Delete removes the tenant's configuration.
func (s *TenantStore) Delete(tenant string) error {
	err := os.Remove(s.path(tenant))
	if os.IsNotExist(err) {
		return fmt.Errorf("tenant %s: %w", tenant, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, tenant)
	s.mu.Unlock()
	return nil
}
