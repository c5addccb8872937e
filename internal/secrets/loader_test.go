package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSecretFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write secret file: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeSecretFile(t, "  token-value \n")

	secret, err := Load(Source{Name: "api key", File: path})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if secret != "token-value" {
		t.Fatalf("secret = %q, want token-value", secret)
	}
}

func TestLoadFilePrecedesValueAndEnv(t *testing.T) {
	path := writeSecretFile(t, "from-file")
	t.Setenv("SECRET_TEST_ENV", "from-env")

	secret, err := Load(Source{File: path, Value: "from-value", Env: "SECRET_TEST_ENV"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if secret != "from-file" {
		t.Fatalf("secret = %q, want from-file", secret)
	}
}

func TestLoadValuePrecedesEnv(t *testing.T) {
	t.Setenv("SECRET_TEST_ENV", "from-env")

	secret, err := Load(Source{Value: " from-value ", Env: "SECRET_TEST_ENV"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if secret != "from-value" {
		t.Fatalf("secret = %q, want from-value", secret)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SECRET_TEST_ENV", " from-env ")

	secret, err := Load(Source{Env: "SECRET_TEST_ENV"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if secret != "from-env" {
		t.Fatalf("secret = %q, want from-env", secret)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(Source{Name: "api key"}); err == nil || !strings.Contains(err.Error(), "api key") {
		t.Fatalf("expected a named not-configured error, got %v", err)
	}

	if _, err := Load(Source{File: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected an error for a missing file")
	}

	empty := writeSecretFile(t, "   \n")
	if _, err := Load(Source{Name: "token", File: empty}); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected an empty-file error, got %v", err)
	}

	t.Setenv("SECRET_TEST_EMPTY", "   ")
	if _, err := Load(Source{Env: "SECRET_TEST_EMPTY"}); err == nil {
		t.Fatal("expected an error for a blank environment value")
	}
}
