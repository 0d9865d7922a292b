// Package persistence contains helpers shared by repository implementations.
package persistence

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
)

const cursorPrefix = "before|"

// EncodeCursor serialises the cursor to a string token.
func EncodeCursor(c *domain.Cursor) string {
	if c == nil || c.Before.IsZero() {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(cursorPrefix + c.Before.String()))
}

// DecodeCursor parses the encoded cursor token.
func DecodeCursor(token string) (*domain.Cursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	raw, ok := strings.CutPrefix(string(decoded), cursorPrefix)
	if !ok {
		return nil, fmt.Errorf("invalid cursor format")
	}
	before, err := calendar.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &domain.Cursor{Before: before}, nil
}

// DecodeSettings reads a stored settings blob. Unreadable or invalid blobs are reported
// as absent (nil) together with the reason so callers can log it and fall back to defaults.
func DecodeSettings(data []byte) (*domain.Settings, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var settings domain.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}
