package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := "debug: true\nlog_file: run.log\ndatabase: covers.db\nmax_distance: 10\nmatch_limit: 3\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	t.Setenv(envConfig, path)
	t.Setenv(envDatabase, "override.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Debug || cfg.LogFile != "run.log" || cfg.MaxDistance != 10 || cfg.MatchLimit != 3 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.DatabasePath != "override.db" {
		t.Errorf("DatabasePath = %q, want override.db", cfg.DatabasePath)
	}
	if cfg.SkipUnreadable {
		t.Errorf("SkipUnreadable should default to false")
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	t.Setenv(envConfig, filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(Config) bool
	}{
		{
			name:  "skip unreadable",
			env:   map[string]string{envSkipUnreadable: "true"},
			check: func(c Config) bool { return c.SkipUnreadable },
		},
		{
			name:  "debug with log file",
			env:   map[string]string{envDebug: "1", envLogFile: "x.log"},
			check: func(c Config) bool { return c.Debug && c.LogFile == "x.log" },
		},
		{
			name:  "empty log file ignored",
			env:   map[string]string{envLogFile: ""},
			check: func(c Config) bool { return c.LogFile == DefaultLogFile },
		},
		{
			name:  "user agent",
			env:   map[string]string{envUserAgent: "covers/1.0 ( me@example.org )"},
			check: func(c Config) bool { return c.UserAgent == "covers/1.0 ( me@example.org )" },
		},
		{
			name:    "bad bool",
			env:     map[string]string{envDebug: "sometimes"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.applyEnv(func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("applyEnv failed: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("unexpected config: %+v", cfg)
			}
		})
	}
}
