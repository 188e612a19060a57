package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultGameMode is the partition used when a request does not name one.
const DefaultGameMode = "Default"

// InitialsLength is the required length of player initials.
const InitialsLength = 3

// ScoreRecord is one achieved score. Records are immutable once created;
// the only mutations the store supports are insert and delete.
type ScoreRecord struct {
	// Partition is the game mode the score was achieved in. Scores are
	// never ranked across partitions.
	Partition string `json:"partition"`

	// SortKey orders records within a partition, newest first. It is
	// unique per partition and carries no ranking meaning.
	SortKey string `json:"sort_key"`

	// Initials is the player's three-letter tag, always uppercase.
	Initials string `json:"initials"`

	Score int64 `json:"score"`

	AchievedAt time.Time `json:"achieved_at"`
}

// NewScoreRecord builds a record for a validated submission. Initials are
// uppercased, AchievedAt is set to the current UTC time, and the sort key
// is derived from the reverse of that time so that newer records sort
// lexicographically first within the partition.
func NewScoreRecord(gameMode, initials string, score int64) ScoreRecord {
	now := time.Now().UTC()
	return ScoreRecord{
		Partition:  gameMode,
		SortKey:    NewSortKey(now),
		Initials:   strings.ToUpper(strings.TrimSpace(initials)),
		Score:      score,
		AchievedAt: now,
	}
}

// NewSortKey returns a reverse-timestamp sort key for the given moment.
// The fixed-width numeric prefix makes lexicographic order equal to
// reverse-chronological order; the uuid suffix keeps keys unique when two
// scores land on the same nanosecond.
func NewSortKey(t time.Time) string {
	reverse := math.MaxInt64 - t.UTC().UnixNano()
	return fmt.Sprintf("%019d-%s", reverse, uuid.New().String()[:8])
}

// LeaderboardEntry is one row of a top-N response.
type LeaderboardEntry struct {
	Rank       int       `json:"rank"`
	Initials   string    `json:"initials"`
	Score      int64     `json:"score"`
	AchievedAt time.Time `json:"achieved_at"`
	GameMode   string    `json:"game_mode"`
}

// ScoreSubmission is the wire shape of a score save request.
type ScoreSubmission struct {
	PlayerInitials string `json:"playerInitials"`
	Score          int64  `json:"score"`
	GameMode       string `json:"gameMode,omitempty"`
}

// Normalized returns the submission with trimmed, uppercased initials and
// the default game mode filled in.
func (s ScoreSubmission) Normalized() ScoreSubmission {
	out := s
	out.PlayerInitials = strings.ToUpper(strings.TrimSpace(s.PlayerInitials))
	if strings.TrimSpace(out.GameMode) == "" {
		out.GameMode = DefaultGameMode
	}
	return out
}

// ServiceStatus is the diagnostics value returned by the test endpoint.
// It is constructed fresh per response and never mutated.
type ServiceStatus struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	ScoreCount int64  `json:"score_count"`
}
