package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty driver returns ErrDriverEmpty",
			config:  Config{Driver: "", DSN: "/tmp/dbo.db"},
			wantErr: ErrDriverEmpty,
		},
		{
			name:    "unknown driver returns ErrDriverUnknown",
			config:  Config{Driver: "postgres", DSN: "postgres://localhost"},
			wantErr: ErrDriverUnknown,
		},
		{
			name:    "mysql without dsn returns ErrDSNEmpty",
			config:  Config{Driver: "mysql"},
			wantErr: ErrDSNEmpty,
		},
		{
			name:    "valid mysql config",
			config:  Config{Driver: "mysql", DSN: "app:secret@tcp(localhost:3306)/app"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty dsn is valid",
			config:  Config{Driver: "sqlite", DSN: ""},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLockModeString(t *testing.T) {
	if got := LockWrite.String(); got != "WRITE" {
		t.Fatalf("LockWrite.String() = %q, want WRITE", got)
	}
	if got := LockRead.String(); got != "READ" {
		t.Fatalf("LockRead.String() = %q, want READ", got)
	}
	if got := LockMode(7).String(); got != "UNKNOWN" {
		t.Fatalf("LockMode(7).String() = %q, want UNKNOWN", got)
	}
}
