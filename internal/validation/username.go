// Package validation checks identifiers that arrive from outside the API.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// UsernameMaxLength matches the users.username column.
const UsernameMaxLength = 150

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.@+-]+$`)

// ValidateUsername accepts the character set usernames are issued with by
// the auth system: letters, digits and @ . + - _.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) != username {
		return fmt.Errorf("username must not have leading or trailing spaces")
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(username) > UsernameMaxLength {
		return fmt.Errorf("username must be at most %d characters", UsernameMaxLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username may only contain letters, digits and @ . + - _")
	}
	return nil
}
