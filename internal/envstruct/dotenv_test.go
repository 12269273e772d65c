package envstruct_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/myrjola/circuitgen/internal/envstruct"
)

func TestWithDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nCIRCUITGEN_ADDR=localhost:9090\nCIRCUITGEN_AI_TIMEOUT=3s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	processEnv := func(key string) (string, bool) {
		if key == "CIRCUITGEN_ADDR" {
			return "localhost:0", true
		}
		return "", false
	}
	lookupEnv, err := envstruct.WithDotenv(path, processEnv)
	if err != nil {
		t.Fatalf("WithDotenv: %v", err)
	}

	var cfg struct {
		Addr    string `env:"CIRCUITGEN_ADDR" envDefault:"localhost:8081"`
		Timeout string `env:"CIRCUITGEN_AI_TIMEOUT" envDefault:"10s"`
		Model   string `env:"CIRCUITGEN_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	}
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if cfg.Addr != "localhost:0" {
		t.Errorf("Addr = %q, want the process environment to win", cfg.Addr)
	}
	if cfg.Timeout != "3s" {
		t.Errorf("Timeout = %q, want the dotenv value", cfg.Timeout)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want the default", cfg.Model)
	}
}

func TestWithDotenv_missingFile(t *testing.T) {
	lookupEnv, err := envstruct.WithDotenv(filepath.Join(t.TempDir(), ".env"), func(string) (string, bool) {
		return "from-env", true
	})
	if err != nil {
		t.Fatalf("WithDotenv: %v", err)
	}
	if v, ok := lookupEnv("ANY"); !ok || v != "from-env" {
		t.Errorf("lookupEnv = (%q, %v), want the process environment", v, ok)
	}
}
