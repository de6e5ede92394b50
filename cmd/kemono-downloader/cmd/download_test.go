package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePostURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected postRef
	}{
		{
			name:     "standard post URL",
			url:      "https://kemono.su/patreon/user/777/post/12345",
			expected: postRef{Service: "patreon", CreatorID: "777", PostID: "12345"},
		},
		{
			name:     "trailing slash",
			url:      "https://kemono.su/fanbox/user/42/post/9/",
			expected: postRef{Service: "fanbox", CreatorID: "42", PostID: "9"},
		},
		{
			name:     "query string ignored",
			url:      "https://kemono.su/patreon/user/777/post/12345?o=50",
			expected: postRef{Service: "patreon", CreatorID: "777", PostID: "12345"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePostURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParsePostURL_Invalid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "creator page, not a post", url: "https://kemono.su/patreon/user/777"},
		{name: "wrong segment order", url: "https://kemono.su/patreon/post/777/user/1"},
		{name: "too few segments", url: "https://kemono.su/patreon"},
		{name: "not a URL", url: "://bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePostURL(tt.url)
			assert.Error(t, err)
		})
	}
}
