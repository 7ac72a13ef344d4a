package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blagojts/viper"
)

func TestSetupConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("base-url: http://localhost:9000\nwarmup: 3\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	defer viper.Reset()

	SetupConfigFile(path)

	if got := viper.GetString("base-url"); got != "http://localhost:9000" {
		t.Fatalf("expected the configured base url but got %q", got)
	}
	if got := viper.GetInt("warmup"); got != 3 {
		t.Fatalf("expected warmup 3 but got %d", got)
	}
}

func TestSetupConfigFileMissingIsTolerated(t *testing.T) {
	defer viper.Reset()

	SetupConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))

	if got := viper.GetString("base-url"); got != "" {
		t.Fatalf("no config should have been read, got %q", got)
	}
}
