package config

import (
	"testing"

	"github.com/BurntSushi/toml"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestParseProviderSettings(t *testing.T) {
	raw := `
subs_language = "nl"
history = false

[providers.prima]
username = "user@example.com"
password = "hunter2"

[providers.vrt]
formats = ["hls", "dash"]
`
	cfg := Default()
	if err := toml.Unmarshal([]byte(raw), cfg); err != nil {
		t.Fatalf("parsing: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validating: %v", err)
	}

	creds, ok := cfg.Credentials("prima").Get()
	if !ok {
		t.Fatal("prima credentials missing")
	}
	if creds.Username != "user@example.com" || creds.Password != "hunter2" {
		t.Errorf("credentials = %+v", creds)
	}

	if _, ok := cfg.Credentials("vrt").Get(); ok {
		t.Error("vrt should have no credentials")
	}

	kinds := cfg.EnabledFormats("vrt")
	if len(kinds) != 2 || kinds[0] != "hls" || kinds[1] != "dash" {
		t.Errorf("EnabledFormats(vrt) = %v", kinds)
	}
	if got := cfg.EnabledFormats("prima"); got != nil {
		t.Errorf("EnabledFormats(prima) = %v, want nil (provider default)", got)
	}

	if cfg.SubsLanguage != "nl" || cfg.History {
		t.Errorf("top-level settings not applied: %+v", cfg)
	}
}

func TestValidateRejectsUnknownFormatKind(t *testing.T) {
	cfg := Default()
	cfg.Providers["vrt"] = ProviderConfig{Formats: []string{"rtmp"}}

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown format kind")
	}
}

func TestValidateRejectsHalfCredentials(t *testing.T) {
	cfg := Default()
	cfg.Providers["prima"] = ProviderConfig{Username: "user@example.com"}

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for username without password")
	}
}
