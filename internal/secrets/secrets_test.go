package secrets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("PUBSCOPE_GRAPH_PASSWORD", "s3cret")

	p := NewEnvProvider("")
	val, err := p.Get(context.Background(), KeyGraphPassword)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != "s3cret" {
		t.Errorf("got %q, want s3cret", val)
	}

	if _, err := p.Get(context.Background(), "nope"); err == nil {
		t.Error("expected error for unset key")
	}
}

func TestEnvProviderUnprefixedFallback(t *testing.T) {
	t.Setenv("TEMPORAL_TOKEN", "tok")

	p := NewEnvProvider("PUBSCOPE_")
	val, err := p.Get(context.Background(), KeyTemporalToken)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != "tok" {
		t.Errorf("got %q, want tok", val)
	}
}

func TestFileProviderRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")

	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("NewFileProvider: %v", err)
	}
	if err := p.Set(context.Background(), KeyGraphPassword, "hunter2"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A fresh provider must see the persisted value.
	p2, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("NewFileProvider reopen: %v", err)
	}
	val, err := p2.Get(context.Background(), KeyGraphPassword)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != "hunter2" {
		t.Errorf("got %q, want hunter2", val)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestFileProviderMissingFile(t *testing.T) {
	p, err := NewFileProvider(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should not fail construction: %v", err)
	}
	if _, err := p.Get(context.Background(), KeyGraphPassword); err == nil {
		t.Error("expected error from empty store")
	}
}

func TestManagerFallsBackToEnv(t *testing.T) {
	t.Setenv("PUBSCOPE_GRAPH_PASSWORD", "from-env")

	m, err := NewManager(Config{
		Provider: "file",
		Path:     filepath.Join(t.TempDir(), "secrets.json"),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	val, err := m.Get(context.Background(), KeyGraphPassword)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != "from-env" {
		t.Errorf("got %q, want from-env", val)
	}
}

func TestManagerGetOrDefault(t *testing.T) {
	m, err := NewManager(Config{Provider: "env", EnvPrefix: "PUBSCOPE_TEST_NONE_"})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if got := m.GetOrDefault(context.Background(), "graph_password", "neo4j"); got != "neo4j" {
		t.Errorf("got %q, want default neo4j", got)
	}
}

func TestManagerUnknownProvider(t *testing.T) {
	if _, err := NewManager(Config{Provider: "consul"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestVaultProvider(t *testing.T) {
	store := map[string]any{KeyGraphPassword: "vault-pass"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"data": store},
			})
		case http.MethodPost:
			var payload struct {
				Data map[string]any `json:"data"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			store = payload.Data
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	p, err := NewVaultProvider(VaultConfig{Address: srv.URL, Token: "root"})
	if err != nil {
		t.Fatalf("NewVaultProvider: %v", err)
	}

	val, err := p.Get(context.Background(), KeyGraphPassword)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != "vault-pass" {
		t.Errorf("got %q, want vault-pass", val)
	}

	if err := p.Set(context.Background(), KeyTemporalToken, "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := p.Get(context.Background(), KeyTemporalToken)
	if err != nil {
		t.Fatalf("Get after Set: %v", err)
	}
	if got != "tok" {
		t.Errorf("got %q, want tok", got)
	}
	// Merge semantics: the original key must survive the write.
	if _, err := p.Get(context.Background(), KeyGraphPassword); err != nil {
		t.Errorf("original key lost after Set: %v", err)
	}
}

func TestVaultProviderRequiresToken(t *testing.T) {
	if _, err := NewVaultProvider(VaultConfig{Address: "http://localhost:8200"}); err == nil {
		t.Error("expected error for missing token")
	}
}
