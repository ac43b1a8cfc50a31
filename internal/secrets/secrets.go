// Package secrets loads relational-store credentials once per process.
// Credentials live outside the YAML config on purpose; the document is read a
// single time and cached for the process lifetime, with no mid-process
// rotation handling.
package secrets

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Provider returns the relational-store credentials.
type Provider interface {
	DatabaseCredentials() (Credentials, error)
}

// FileProvider reads a JSON credentials document from disk. Environment
// variables FEEDSYNC_DB_USERNAME / FEEDSYNC_DB_PASSWORD take precedence over
// the document so local runs need no file at all.
type FileProvider struct {
	path string

	once  sync.Once
	creds Credentials
	err   error
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) DatabaseCredentials() (Credentials, error) {
	p.once.Do(func() {
		p.creds, p.err = p.load()
	})
	return p.creds, p.err
}

func (p *FileProvider) load() (Credentials, error) {
	var creds Credentials

	if p.path != "" {
		data, err := os.ReadFile(p.path)
		if err != nil {
			return creds, fmt.Errorf("failed to read credentials file: %w", err)
		}
		if err := json.Unmarshal(data, &creds); err != nil {
			return creds, fmt.Errorf("failed to parse credentials file: %w", err)
		}
	}

	if v := os.Getenv("FEEDSYNC_DB_USERNAME"); v != "" {
		creds.Username = v
	}
	if v := os.Getenv("FEEDSYNC_DB_PASSWORD"); v != "" {
		creds.Password = v
	}

	if creds.Username == "" {
		return creds, fmt.Errorf("no database username in %q or environment", p.path)
	}

	return creds, nil
}

// Static wraps fixed credentials, for tests.
type Static struct {
	Creds Credentials
}

func (s Static) DatabaseCredentials() (Credentials, error) {
	return s.Creds, nil
}
