package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateSubmission checks a normalized submission before it reaches the
// engine. Initials must be exactly three characters after trimming and
// scores must be non-negative; a zero score from a finished game is a
// legitimate result and is accepted.
func ValidateSubmission(s ScoreSubmission) error {
	initials := strings.TrimSpace(s.PlayerInitials)
	if initials == "" || utf8.RuneCountInString(initials) != InitialsLength {
		return fmt.Errorf("%w: got %q", ErrInvalidInitials, s.PlayerInitials)
	}
	if s.Score < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidScore, s.Score)
	}
	if strings.TrimSpace(s.GameMode) == "" {
		return ErrInvalidGameMode
	}
	return nil
}
