package instagram

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProfileURL(t *testing.T) {
	got := GetProfileURL("http://127.0.0.1:9999", "test.user")
	assert.Equal(t, "http://127.0.0.1:9999/api/v1/users/web_profile_info/?username=test.user", got)

	_, err := url.Parse(got)
	require.NoError(t, err)
}

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		username string
		valid    bool
	}{
		{"someone", true},
		{"some.one_42", true},
		{"", false},
		{"has space", false},
		{"dash-name", false},
		{"averyveryveryveryverylongname31", false},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidUsername(tt.username))
		})
	}
}

func TestSanitizeUsername(t *testing.T) {
	tests := map[string]string{
		"@someone":                             "someone",
		"someone/":                             "someone",
		"  someone  ":                          "someone",
		"https://www.instagram.com/someone/":   "someone",
		"instagram.com/someone":                "someone",
		"":                                     "",
	}

	for in, want := range tests {
		assert.Equal(t, want, SanitizeUsername(in), "input %q", in)
	}
}
