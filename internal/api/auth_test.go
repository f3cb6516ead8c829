package api

import (
	"net/http/httptest"
	"testing"
)

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		provided string
		config   string
		want     bool
	}{
		{"matching keys", "secret", "secret", true},
		{"mismatched keys", "wrong", "secret", false},
		{"empty provided", "", "secret", false},
		{"empty config", "secret", "", false},
		{"both empty", "", "", false},
		{"length mismatch", "secre", "secret", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateAPIKey(tt.provided, tt.config); got != tt.want {
				t.Errorf("ValidateAPIKey(%q, %q) = %v, want %v", tt.provided, tt.config, got, tt.want)
			}
		})
	}
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid bearer", "Bearer my-key", "my-key", false},
		{"missing header", "", "", true},
		{"wrong scheme", "Basic my-key", "", true},
		{"bearer only", "Bearer ", "", true},
		{"whitespace key", "Bearer    ", "", true},
		{"padded key", "Bearer  my-key ", "my-key", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/v1/workspaces", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			got, err := ExtractAPIKey(r)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExtractAPIKey(%q) expected error, got %q", tt.header, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractAPIKey(%q) unexpected error: %v", tt.header, err)
			}
			if got != tt.want {
				t.Errorf("ExtractAPIKey(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
