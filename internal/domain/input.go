package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParseWrite validates the form fields of a write request. The content field
// must be present but may be empty. A missing or blank expiry falls back to
// DefaultExpiryMinutes.
func ParseWrite(form url.Values) (ParsedWrite, error) {
	values, ok := form["content"]
	if !ok || len(values) == 0 {
		return ParsedWrite{}, fmt.Errorf("content is required: %w", ErrMalformedInput)
	}
	content := values[0]
	if len(content) > MaxContentSize {
		return ParsedWrite{}, fmt.Errorf("content exceeds %d bytes: %w", MaxContentSize, ErrMalformedInput)
	}

	minutes := DefaultExpiryMinutes
	if raw := strings.TrimSpace(form.Get("expiry")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return ParsedWrite{}, fmt.Errorf("expiry must be a whole number of minutes: %w", ErrMalformedInput)
		}
		if n < 0 || n > MaxExpiryMinutes {
			return ParsedWrite{}, fmt.Errorf("expiry must be between 0 and %d minutes: %w", MaxExpiryMinutes, ErrMalformedInput)
		}
		minutes = n
	}

	return ParsedWrite{Content: content, ExpiryMinutes: minutes}, nil
}
