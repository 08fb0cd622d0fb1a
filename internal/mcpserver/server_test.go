package mcpserver

import (
	"reflect"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestStringParameters(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want map[string]string
	}{
		{"nil", nil, nil},
		{"not an object", "oops", nil},
		{"empty object", map[string]any{}, nil},
		{
			"strings pass through",
			map[string]any{"ENV": "prod", "BRANCH": "main"},
			map[string]string{"ENV": "prod", "BRANCH": "main"},
		},
		{
			"whole numbers lose the decimal point",
			map[string]any{"COUNT": float64(3)},
			map[string]string{"COUNT": "3"},
		},
		{
			"fractional numbers keep it",
			map[string]any{"RATIO": 0.5},
			map[string]string{"RATIO": "0.5"},
		},
		{
			"booleans render as text",
			map[string]any{"DRY_RUN": true},
			map[string]string{"DRY_RUN": "true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stringParameters(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("stringParameters(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTrimFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{3, "3"},
		{3.5, "3.5"},
		{0, "0"},
		{-7, "-7"},
	}

	for _, tt := range tests {
		if got := trimFloat(tt.in); got != tt.want {
			t.Errorf("trimFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOptionalBuildNumber(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"job_name": "deploy"}
	if got := optionalBuildNumber(req); got != nil {
		t.Errorf("optionalBuildNumber() = %v, want nil", *got)
	}

	req.Params.Arguments = map[string]any{"job_name": "deploy", "build_number": float64(42)}
	got := optionalBuildNumber(req)
	if got == nil || *got != 42 {
		t.Errorf("optionalBuildNumber() = %v, want 42", got)
	}
}
