package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	// Save original env vars
	origPort := os.Getenv("LEXIDRAFT_SERVER__PORT")
	defer func() {
		if origPort != "" {
			os.Setenv("LEXIDRAFT_SERVER__PORT", origPort)
		} else {
			os.Unsetenv("LEXIDRAFT_SERVER__PORT")
		}
	}()

	t.Run("defaults", func(t *testing.T) {
		os.Unsetenv("LEXIDRAFT_SERVER__PORT")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 8080 {
			t.Errorf("Load() port = %v, want 8080", cfg.Server.Port)
		}
		if cfg.Storage.Type != "memory" {
			t.Errorf("Load() storage type = %v, want memory", cfg.Storage.Type)
		}
		if cfg.Assistant.Timeout != "120s" {
			t.Errorf("Load() assistant timeout = %v, want 120s", cfg.Assistant.Timeout)
		}
	})

	t.Run("env var port override", func(t *testing.T) {
		os.Setenv("LEXIDRAFT_SERVER__PORT", "9000")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 9000 {
			t.Errorf("Load() port = %v, want 9000", cfg.Server.Port)
		}
	})

	t.Run("assistant api key substitution", func(t *testing.T) {
		os.Setenv("LEXIDRAFT_ASSISTANT__API_KEY", "${LEXIDRAFT_TEST_KEY}")
		os.Setenv("LEXIDRAFT_TEST_KEY", "sk-cabinet")
		defer os.Unsetenv("LEXIDRAFT_ASSISTANT__API_KEY")
		defer os.Unsetenv("LEXIDRAFT_TEST_KEY")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Assistant.APIKey != "sk-cabinet" {
			t.Errorf("Load() assistant api key = %v, want sk-cabinet", cfg.Assistant.APIKey)
		}
	})
}

func TestSubstituteEnvVars(t *testing.T) {
	// Set test env var
	os.Setenv("TEST_VAR", "test-value")
	defer os.Unsetenv("TEST_VAR")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple substitution",
			input: "${TEST_VAR}",
			want:  "test-value",
		},
		{
			name:  "substitution in string",
			input: "prefix-${TEST_VAR}-suffix",
			want:  "prefix-test-value-suffix",
		},
		{
			name:  "no substitution",
			input: "plain-string",
			want:  "plain-string",
		},
		{
			name:  "undefined var",
			input: "${UNDEFINED_VAR}",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substituteEnvVars(tt.input)
			if got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}
