package archive

import (
	"testing"
	"time"

	"github.com/korefinance/kore/internal/pkg/env"
)

func setTestEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	old := env.Env
	env.Env = vars
	t.Cleanup(func() { env.Env = old })
}

func TestLoadConfigDisabledByDefault(t *testing.T) {
	setTestEnv(t, map[string]string{})

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.IsEnabled() {
		t.Error("archive should be disabled by default")
	}
	if cfg.AfterDays != DefaultAfterDays {
		t.Errorf("AfterDays = %d, want %d", cfg.AfterDays, DefaultAfterDays)
	}
}

func TestLoadConfigEnabledRequiresCredentials(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr bool
	}{
		{
			name: "complete",
			vars: map[string]string{
				"ARCHIVE_ENABLED":              "true",
				"ARCHIVE_S3_ACCESS_KEY_ID":     "key",
				"ARCHIVE_S3_SECRET_ACCESS_KEY": "secret",
				"ARCHIVE_S3_BUCKET":            "kore-webhooks",
				"ARCHIVE_AFTER_DAYS":           "14",
			},
			wantErr: false,
		},
		{
			name: "missing bucket",
			vars: map[string]string{
				"ARCHIVE_ENABLED":              "true",
				"ARCHIVE_S3_ACCESS_KEY_ID":     "key",
				"ARCHIVE_S3_SECRET_ACCESS_KEY": "secret",
			},
			wantErr: true,
		},
		{
			name: "missing access key",
			vars: map[string]string{
				"ARCHIVE_ENABLED":              "true",
				"ARCHIVE_S3_SECRET_ACCESS_KEY": "secret",
				"ARCHIVE_S3_BUCKET":            "kore-webhooks",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setTestEnv(t, tt.vars)
			cfg, err := LoadConfig()
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.vars["ARCHIVE_AFTER_DAYS"] == "14" && cfg.AfterDays != 14 {
				t.Errorf("AfterDays = %d, want 14", cfg.AfterDays)
			}
		})
	}
}

func TestGetObjectKey(t *testing.T) {
	cfg := &Config{}
	received := time.Date(2026, time.March, 7, 23, 59, 0, 0, time.UTC)

	got := cfg.GetObjectKey("evt-123", received)
	want := "webhooks/2026/03/07/evt-123.json"
	if got != want {
		t.Errorf("GetObjectKey() = %q, want %q", got, want)
	}
}
