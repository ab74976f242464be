package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "brandvault")
	p := writeFile(t, t.TempDir(), "c.yaml", "name: ${SAMPLE_NAME}\nport: 80\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "brandvault" || s.Port != 80 {
		t.Errorf("got %+v", s)
	}
}

func TestLoadRunsValidator(t *testing.T) {
	p := writeFile(t, t.TempDir(), "c.yaml", "name: x\n")
	var s sample
	err := Load(p, &s)
	if err == nil || !strings.Contains(err.Error(), "port is required") {
		t.Errorf("error = %v, want validation failure", err)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	var s sample
	if err := Load(filepath.Join(dir, "missing.yaml"), &s); err == nil {
		t.Error("missing file should fail")
	}
	p := writeFile(t, dir, "bad.yaml", "name: [unterminated\n")
	if err := Load(p, &s); err == nil {
		t.Error("bad YAML should fail")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "default.yaml", "name: fallback\nport: 1\n")

	var s sample
	if err := LoadWithDefaults(filepath.Join(dir, "absent.yaml"), def, &s); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if s.Name != "fallback" {
		t.Errorf("name = %q, want fallback", s.Name)
	}
	if err := LoadWithDefaults(filepath.Join(dir, "absent.yaml"), "", &s); err == nil {
		t.Error("no file and no default should fail")
	}
}

func TestExpandEnvDefaults(t *testing.T) {
	t.Setenv("SET_VAR", "value")
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		in, want string
	}{
		{"${SET_VAR}", "value"},
		{"$SET_VAR", "value"},
		{"${SET_VAR:-other}", "value"},
		{"${EMPTY_VAR:-fallback}", "fallback"},
		{"${UNSET_VAR_FOR_TEST:-8080}", "8080"},
		{"${UNSET_VAR_FOR_TEST}", ""},
	}
	for _, tt := range tests {
		if got := ExpandEnv(tt.in); got != tt.want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	p := writeFile(t, t.TempDir(), "c.yaml", "name: x\nport: 1\nprot: 2\n")
	var s sample
	if err := Load(p, &s); err == nil {
		t.Error("unknown key should fail")
	}
}

func TestLoadKeepsPresetValues(t *testing.T) {
	p := writeFile(t, t.TempDir(), "c.yaml", "name: x\n")
	s := sample{Port: 9}
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Port != 9 || s.Name != "x" {
		t.Errorf("got %+v", s)
	}
}
