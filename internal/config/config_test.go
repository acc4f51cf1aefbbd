package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KEYDASH_CONFIG_DIR", dir)
	chdir(t, dir)

	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendLocal || cfg.PageSize != 20 || cfg.ToastSeconds != 4 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.DatabasePath != filepath.Join(dir, "keydash.sqlite") {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KEYDASH_CONFIG_DIR", dir)
	chdir(t, dir)

	path := filepath.Join(dir, "config.yaml")
	body := "backend: http\nidentity_url: https://api.example.test/v1\norganization_id: org_1\npage_size: 50\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("KEYDASH_SESSION_TOKEN=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KEYDASH_KEY_SERVICE_URL", "https://keys.example.test/trpc")
	t.Setenv("KEYDASH_PAGE_SIZE", "10")
	t.Cleanup(func() { os.Unsetenv("KEYDASH_SESSION_TOKEN") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendHTTP || cfg.OrganizationID != "org_1" {
		t.Errorf("file values lost: %+v", cfg)
	}
	if cfg.PageSize != 10 {
		t.Errorf("env should override file page size, got %d", cfg.PageSize)
	}
	if cfg.SessionToken != "from-dotenv" {
		t.Errorf(".env value not applied: %q", cfg.SessionToken)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_BadInt(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KEYDASH_CONFIG_DIR", dir)
	chdir(t, dir)
	t.Setenv("KEYDASH_TOAST_SECONDS", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric KEYDASH_TOAST_SECONDS")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"http missing urls", Config{Backend: BackendHTTP}, true},
		{"http complete", Config{Backend: BackendHTTP, IdentityURL: "u", KeyServiceURL: "k", SessionToken: "t"}, false},
		{"local without db", Config{Backend: BackendLocal}, true},
		{"unknown backend", Config{Backend: "grpc"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
