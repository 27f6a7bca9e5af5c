package domain

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWrite(t *testing.T) {
	testCases := []struct {
		name        string
		form        url.Values
		wantContent string
		wantMinutes int
		wantErr     bool
	}{
		{"content and expiry", url.Values{"content": {"abc"}, "expiry": {"5"}}, "abc", 5, false},
		{"empty content allowed", url.Values{"content": {""}, "expiry": {"10"}}, "", 10, false},
		{"zero expiry", url.Values{"content": {"x"}, "expiry": {"0"}}, "x", 0, false},
		{"missing expiry uses default", url.Values{"content": {"x"}}, "x", DefaultExpiryMinutes, false},
		{"blank expiry uses default", url.Values{"content": {"x"}, "expiry": {" "}}, "x", DefaultExpiryMinutes, false},
		{"max expiry", url.Values{"content": {"x"}, "expiry": {"525600"}}, "x", MaxExpiryMinutes, false},
		{"missing content", url.Values{"expiry": {"5"}}, "", 0, true},
		{"non-numeric expiry", url.Values{"content": {"x"}, "expiry": {"soon"}}, "", 0, true},
		{"fractional expiry", url.Values{"content": {"x"}, "expiry": {"1.5"}}, "", 0, true},
		{"negative expiry", url.Values{"content": {"x"}, "expiry": {"-1"}}, "", 0, true},
		{"expiry too large", url.Values{"content": {"x"}, "expiry": {"525601"}}, "", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseWrite(tc.form)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantContent, got.Content)
			assert.Equal(t, tc.wantMinutes, got.ExpiryMinutes)
		})
	}
}

func TestParseWrite_ContentTooLarge(t *testing.T) {
	form := url.Values{"content": {strings.Repeat("a", MaxContentSize+1)}}
	_, err := ParseWrite(form)
	assert.ErrorIs(t, err, ErrMalformedInput)
}
