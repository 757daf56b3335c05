package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVideoReference(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		locator string
		local   bool
	}{
		{"absolute path", "/videos/clip.mp4", "/videos/clip.mp4", true},
		{"relative path", "clip.mp4", "clip.mp4", true},
		{"path with invalid escape", "clip%zz.mp4", "clip%zz.mp4", true},
		{"path with colon", "my:clip.mp4", "my:clip.mp4", true},
		{"bare percent", "%zz", "%zz", true},
		{"file url", "file:///tmp/in%20put.mp4", "/tmp/in put.mp4", true},
		{"http url", "http://cdn.example.com/a.mp4", "http://cdn.example.com/a.mp4", false},
		{"https url", "HTTPS://cdn.example.com/a.mp4?sig=1", "https://cdn.example.com/a.mp4?sig=1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseVideoReference(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, ref.String())
			assert.Equal(t, tt.locator, ref.Locator())
			assert.Equal(t, tt.local, ref.IsLocal())
		})
	}
}

func TestParseVideoReference_Invalid(t *testing.T) {
	for _, raw := range []string{
		"",
		" /videos/clip.mp4",
		"/videos/clip.mp4\n",
		"/videos/\x00clip.mp4",
		"://not a url",
		"file://%zz",
		"ftp://host/clip.mp4",
		"http:///clip.mp4",
		"file://",
	} {
		_, err := ParseVideoReference(raw)
		assert.ErrorIs(t, err, ErrInvalidReference, "raw %q", raw)
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "invalid video reference", ErrInvalidReference.Error())

	cause := errors.New("moov atom not found")
	err := ExtractionFailed(cause)
	assert.Equal(t, "extraction failed: moov atom not found", err.Error())
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.ErrorIs(t, err, cause)

	assert.ErrorIs(t, Canceled(errors.New("context canceled")), ErrCanceled)
}

func TestRetryableError(t *testing.T) {
	cause := errors.New("ffprobe: exit status 1")
	err := error(&RetryableError{Attempt: 2, MaxAttempts: 5, Err: cause})

	assert.Equal(t, "retryable failure (attempt 2/5): ffprobe: exit status 1", err.Error())
	assert.ErrorIs(t, err, cause)

	var retry *RetryableError
	require.ErrorAs(t, err, &retry)
	assert.Equal(t, 2, retry.RetryAttempt())
}
