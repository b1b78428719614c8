package utils

import (
	"fmt"
	"ms-events/internal/models"
	"net/url"
	"strconv"
	"strings"
)

// ParseEventID parses a path segment as a positive event id.
func ParseEventID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidEventID, raw)
	}
	return id, nil
}

// QueryInt reads an optional integer query parameter.
func QueryInt(q url.Values, key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", models.ErrValidation, key)
	}
	return v, nil
}
