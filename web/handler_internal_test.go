package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeReturnToPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty defaults to root",
			input:    "",
			expected: "/",
		},
		{
			name:     "relative path is allowed",
			input:    "/post/123",
			expected: "/post/123",
		},
		{
			name:     "relative path with query is allowed",
			input:    "/post/123?tab=comments",
			expected: "/post/123?tab=comments",
		},
		{
			name:     "relative path with fragment is allowed",
			input:    "/post/123#comments",
			expected: "/post/123#comments",
		},
		{
			name:     "missing leading slash is rejected",
			input:    "p/123",
			expected: "/",
		},
		{
			name:     "absolute url is rejected",
			input:    "https://evil.com",
			expected: "/",
		},
		{
			name:     "protocol relative url is rejected",
			input:    "//evil.com",
			expected: "/",
		},
		{
			name:     "triple slash is rejected",
			input:    "///evil.com",
			expected: "/",
		},
		{
			name:     "absolute url text as local path is allowed",
			input:    "/https://evil.com",
			expected: "/https://evil.com",
		},
		{
			name:     "double slash in local path is allowed",
			input:    "/foo//bar",
			expected: "/foo//bar",
		},
		{
			name:     "backslash after leading slash is rejected",
			input:    "/\\evil.com",
			expected: "/",
		},
		{
			name:     "post comments anchor is allowed",
			input:    "/post/7#comments",
			expected: "/post/7#comments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := sanitizeReturnToPath(tt.input)

			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseOptionalID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected *int64
		ok       bool
	}{
		{name: "empty is absent", input: "", expected: nil, ok: true},
		{name: "positive id", input: "42", expected: func() *int64 { v := int64(42); return &v }(), ok: true},
		{name: "zero is invalid", input: "0", ok: false},
		{name: "negative is invalid", input: "-3", ok: false},
		{name: "text is invalid", input: "abc", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, ok := parseOptionalID(tt.input)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDict(t *testing.T) {
	t.Parallel()

	result, err := dict("Node", 1, "Section", "s")
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"Node": 1, "Section": "s"}, result)

	_, err = dict("odd")
	assert.Error(t, err)

	_, err = dict(1, 2)
	assert.Error(t, err)
}
