package validation

import (
	"strings"
	"testing"
)

func TestValidateThemaName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "Valid", input: "General"},
		{name: "ValidWithSpaces", input: "Late Night Chat"},
		{name: "ValidUnicode", input: "Ágora ☕"},
		{name: "Empty", input: "", wantErr: true},
		{name: "OnlyWhitespace", input: "   ", wantErr: true},
		{name: "LeadingWhitespace", input: " general", wantErr: true},
		{name: "TrailingWhitespace", input: "general ", wantErr: true},
		{name: "TooLong", input: strings.Repeat("a", 65), wantErr: true},
		{name: "MaxLength", input: strings.Repeat("a", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateThemaName(tt.input)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.input, err)
			}
		})
	}
}

func TestValidateConversationName(t *testing.T) {
	if err := ValidateConversationName("weekend plans"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "  ", " padded", "padded ", strings.Repeat("x", 65)} {
		if err := ValidateConversationName(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
