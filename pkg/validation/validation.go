package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// RoomIDRegex matches room names accepted by the media SDK.
	RoomIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

	// placeholderAppIDs are values shipped in sample configs.
	placeholderAppIDs = map[string]bool{
		"":                true,
		"YOUR_FISHJAM_ID": true,
		"YOUR_APP_ID":     true,
		"change-me":       true,
	}
)

// ValidateRoomID validates a room id entered by a user or generated for a broadcast.
func ValidateRoomID(roomID string) error {
	if strings.TrimSpace(roomID) == "" {
		return fmt.Errorf("room ID is required")
	}
	if len(roomID) > 128 {
		return fmt.Errorf("room ID is too long (max 128 characters)")
	}
	if !RoomIDRegex.MatchString(roomID) {
		return fmt.Errorf("invalid room ID format")
	}
	return nil
}

// ValidateDisplayName validates a peer display name.
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("display name is required")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("display name contains invalid characters")
	}
	return ValidateStringLength(name, 1, 100, "display name")
}

// ValidateTitle validates a stream title. Empty titles are allowed.
func ValidateTitle(title string) error {
	if !utf8.ValidString(title) {
		return fmt.Errorf("title contains invalid characters")
	}
	return ValidateStringLength(strings.TrimSpace(title), 0, 120, "title")
}

// IsPlaceholderAppID reports whether id is unset or a sample value.
func IsPlaceholderAppID(id string) bool {
	return placeholderAppIDs[strings.TrimSpace(id)]
}

// ValidateURL validates URL format. schemes restricts accepted schemes.
func ValidateURL(urlStr string, schemes ...string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if len(schemes) == 0 {
		schemes = []string{"http", "https", "ws", "wss"}
	}
	ok := false
	for _, s := range schemes {
		if u.Scheme == s {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid URL scheme %q (must be one of %s)", u.Scheme, strings.Join(schemes, ", "))
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateStringLength validates string length in runes.
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
