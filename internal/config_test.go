package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestCatalogConfig_EmptySourceDefaultsURL(t *testing.T) {
	cfg := CatalogConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty source should default to url: %v", err)
	}
	if cfg.Source != CatalogSourceURL {
		t.Errorf("source = %q, want %q", cfg.Source, CatalogSourceURL)
	}
}

func TestCatalogConfig_FileSourceNeedsPath(t *testing.T) {
	cfg := CatalogConfig{Source: "file"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("file source without snapshot_path should fail")
	}
	if !strings.Contains(err.Error(), "snapshot_path") {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.SnapshotPath = "./gee_catalog.json"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("file source with snapshot_path should pass: %v", err)
	}
}

func TestCatalogConfig_UnknownSource(t *testing.T) {
	cfg := CatalogConfig{Source: "ftp"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown source should fail validation")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestFullConfig_SectionValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}

	cfg = NewDefaultConfig()
	cfg.App.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch http error")
	}
}
