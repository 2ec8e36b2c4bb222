// Package identity persists the device token that ties a browser or phone to
// its seat in a session. The token is minted once per device and reused for
// every create and join, which is what makes rejoin idempotent.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Provider loads or mints the device token backing session membership.
// It satisfies the token source the session app expects.
type Provider struct {
	path string

	mu    sync.Mutex
	token string
}

// NewProvider stores the token at path. The directory is created on first
// mint.
func NewProvider(path string) *Provider {
	return &Provider{path: path}
}

// DefaultPath places the token under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "lobascore", "device_token"), nil
}

// Token returns the stable device token, minting and persisting one on first
// use. A corrupt or empty token file is replaced rather than surfaced.
func (p *Provider) Token() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" {
		return p.token, nil
	}

	if raw, err := os.ReadFile(p.path); err == nil {
		token := strings.TrimSpace(string(raw))
		if _, parseErr := uuid.Parse(token); parseErr == nil {
			p.token = token
			return token, nil
		}
		log.Warn().Str("path", p.path).Msg("discarding unparseable device token")
	}

	token := uuid.New().String()
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return "", fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(token+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persist device token: %w", err)
	}

	log.Info().Str("path", p.path).Msg("minted new device token")
	p.token = token
	return token, nil
}
