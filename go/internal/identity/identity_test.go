package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestTokenIsStableAcrossProviders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "device_token")

	first, err := NewProvider(path).Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("minted token %q is not a uuid: %v", first, err)
	}

	// A fresh provider on the same path must load, not mint.
	second, err := NewProvider(path).Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if second != first {
		t.Errorf("token changed across restarts: %q vs %q", second, first)
	}
}

func TestTokenCachedInMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_token")
	p := NewProvider(path)

	first, err := p.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}

	// Deleting the file must not invalidate the loaded token.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	second, err := p.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if second != first {
		t.Errorf("cached token changed: %q vs %q", second, first)
	}
}

func TestTokenReplacesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_token")
	if err := os.WriteFile(path, []byte("not-a-uuid\n"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	token, err := NewProvider(path).Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if _, err := uuid.Parse(token); err != nil {
		t.Errorf("replacement token %q is not a uuid: %v", token, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got := string(raw); got != token+"\n" {
		t.Errorf("file contents %q, want replaced token", got)
	}
}
