package classroom

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostsPath(t *testing.T) {
	tests := []struct {
		name     string
		schoolID int
		childID  int
		expected string
	}{
		{
			name:     "typical ids",
			schoolID: 123,
			childID:  4567,
			expected: "/s/123/children/4567/posts.json",
		},
		{
			name:     "large ids",
			schoolID: 987654,
			childID:  1234567,
			expected: "/s/987654/children/1234567/posts.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PostsPath(tt.schoolID, tt.childID)
			assert.Equal(t, tt.expected, result)

			_, err := url.Parse(BaseURL + result)
			assert.NoError(t, err)
		})
	}
}

func TestSignInPath(t *testing.T) {
	assert.Equal(t, "/souls/sign_in", SignInPath)

	parsed, err := url.Parse(BaseURL + SignInPath)
	assert.NoError(t, err)
	assert.Equal(t, "www.transparentclassroom.com", parsed.Host)
}
