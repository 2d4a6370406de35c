package commands

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("", nil, func() []string { return nil })
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Server.Port != 19000 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Upstream.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("BaseURL = %q", cfg.Upstream.BaseURL)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
log_format = "json"

[server]
host = "0.0.0.0"
port = 9100

[upstream]
base_url = "http://localhost:11434/v1"

[routing]
default_model = "gpt-4.1-mini"
force_responses = true

[routing.overrides]
"gpt-4o" = "responses"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path, nil, func() []string { return nil })
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9100 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Upstream.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("BaseURL = %q", cfg.Upstream.BaseURL)
	}
	if cfg.Routing.DefaultModel != "gpt-4.1-mini" || !cfg.Routing.ForceResponses {
		t.Errorf("Routing = %+v", cfg.Routing)
	}
	if cfg.Routing.Overrides["gpt-4o"] != "responses" {
		t.Errorf("Overrides = %v", cfg.Routing.Overrides)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 9100\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	environ := func() []string {
		return []string{
			"MODEL_ROUTER_SERVER__PORT=9200",
			"MODEL_ROUTER_UPSTREAM__BASE_URL=http://localhost:1234/v1",
			"UNRELATED=x",
		}
	}

	cfg, err := loadConfig(path, nil, environ)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("env should beat file: Port = %d", cfg.Server.Port)
	}
	if cfg.Upstream.BaseURL != "http://localhost:1234/v1" {
		t.Errorf("BaseURL = %q", cfg.Upstream.BaseURL)
	}
}
