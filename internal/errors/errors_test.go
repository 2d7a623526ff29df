package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestFormat(t *testing.T) {
	base := errors.New("database not found")

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "simple error",
			err:      errors.New("something went wrong"),
			expected: "Error: something went wrong",
		},
		{
			name:     "hinted error",
			err:      WithHint(base, "run 'chime init' first"),
			expected: "Error: database not found\nHint: run 'chime init' first",
		},
		{
			name:     "hint survives wrapping",
			err:      fmt.Errorf("load: %w", WithHint(base, "run 'chime init' first")),
			expected: "Error: load: database not found\nHint: run 'chime init' first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Format(tt.err); result != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestWithHint(t *testing.T) {
	if WithHint(nil, "x") != nil {
		t.Error("WithHint(nil) should be nil")
	}

	base := errors.New("boom")
	if !errors.Is(WithHint(base, "x"), base) {
		t.Error("hinted error should unwrap to its cause")
	}
}
