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
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "sqlite with cgo driver",
			config:  Config{Backend: "sqlite", Driver: "sqlite3"},
			wantErr: nil,
		},
		{
			name:    "unknown driver returns ErrDriverUnknown",
			config:  Config{Backend: "sqlite", Driver: "pgx"},
			wantErr: ErrDriverUnknown,
		},
		{
			name:    "driver on a non-sql backend returns ErrDriverUnknown",
			config:  Config{Backend: "badger", Driver: "sqlite"},
			wantErr: ErrDriverUnknown,
		},
		{
			name:    "adjacency representation on memory",
			config:  Config{Backend: "memory", Representation: "adjacency"},
			wantErr: nil,
		},
		{
			name:    "unknown representation returns ErrRepresentationUnknown",
			config:  Config{Backend: "memory", Representation: "nested-set"},
			wantErr: ErrRepresentationUnknown,
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

func TestConfigDefaults(t *testing.T) {
	c := Config{Backend: BackendSQLite}
	if got := c.GetDriver(); got != DriverModernc {
		t.Errorf("GetDriver() = %q, want %q", got, DriverModernc)
	}
	if got := c.GetRepresentation(); got != RepresentationClosure {
		t.Errorf("GetRepresentation() = %q, want %q", got, RepresentationClosure)
	}
}
