package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	URL       string        `split_words:"true" required:"true"`
	Timeout   time.Duration `split_words:"true" default:"5s"`
	Threshold float64       `split_words:"true" default:"0.8"`
}

var errBadThreshold = errors.New("threshold out of range")

type validatedConfig struct {
	Threshold float64 `split_words:"true" default:"0.8"`
}

func (c *validatedConfig) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return errBadThreshold
	}
	return nil
}

func TestNewReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("SAMPLE_URL=http://catalog:8000\nSAMPLE_TIMEOUT=2s\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	SetEnvFile(path)
	t.Cleanup(func() {
		SetEnvFile("")
		os.Unsetenv("SAMPLE_URL")
		os.Unsetenv("SAMPLE_TIMEOUT")
	})

	cfg, err := New[sampleConfig]("SAMPLE")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.URL != "http://catalog:8000" {
		t.Fatalf("URL = %q, want %q", cfg.URL, "http://catalog:8000")
	}
	if cfg.Timeout != 2*time.Second {
		t.Fatalf("Timeout = %v, want 2s", cfg.Timeout)
	}
	if cfg.Threshold != 0.8 {
		t.Fatalf("Threshold = %v, want 0.8", cfg.Threshold)
	}
}

func TestNewEnvironmentWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("PINNED_URL=http://from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("PINNED_URL", "http://from-env")
	SetEnvFile(path)
	t.Cleanup(func() { SetEnvFile("") })

	cfg, err := New[sampleConfig]("PINNED")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.URL != "http://from-env" {
		t.Fatalf("URL = %q, want %q", cfg.URL, "http://from-env")
	}
}

func TestNewMissingRequired(t *testing.T) {
	chdir(t, t.TempDir())

	if _, err := New[sampleConfig]("ABSENT"); err == nil {
		t.Fatal("expected error for missing required field")
	}
}

func TestNewRunsValidator(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CHECKED_THRESHOLD", "1.5")

	_, err := New[validatedConfig]("CHECKED")
	if !errors.Is(err, errBadThreshold) {
		t.Fatalf("New() error = %v, want errBadThreshold", err)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q) error = %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})
}
