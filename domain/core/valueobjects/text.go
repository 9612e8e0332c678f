package valueobjects

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"ameliorate/domain/config"
	pkgerrors "ameliorate/pkg/errors"
	"ameliorate/pkg/utils"
)

// Titles are URL path segments, so '/' and other reserved characters are
// excluded.
var titlePattern = regexp.MustCompile(`^[A-Za-z0-9 _.,'-]+$`)

// Title is a validated topic title.
type Title struct {
	value string
}

// NewTitle validates a topic title
func NewTitle(s string) (Title, error) {
	cfg := config.DefaultDomainConfig()
	switch {
	case strings.TrimSpace(s) == "":
		return Title{}, pkgerrors.NewValidationError("title cannot be empty")
	case utf8.RuneCountInString(s) > cfg.MaxTitleLength:
		return Title{}, pkgerrors.NewValidationError(
			fmt.Sprintf("title exceeds maximum length of %d characters", cfg.MaxTitleLength))
	case !titlePattern.MatchString(s):
		return Title{}, pkgerrors.NewValidationError(
			"title may only contain letters, numbers, spaces and _ . , ' -")
	}
	return Title{value: s}, nil
}

func (t Title) String() string { return t.value }
func (t Title) Equals(other Title) bool { return t.value == other.value }

// Username is a validated public handle; topics are addressed by
// username and title.
type Username struct {
	value string
}

// NewUsername validates a username: ASCII letters, digits and single
// hyphens, not starting or ending with a hyphen.
func NewUsername(s string) (Username, error) {
	cfg := config.DefaultDomainConfig()
	if s == "" {
		return Username{}, pkgerrors.NewValidationError("username cannot be empty")
	}
	if len(s) > cfg.MaxUsernameLength {
		return Username{}, pkgerrors.NewValidationError(
			fmt.Sprintf("username exceeds maximum length of %d characters", cfg.MaxUsernameLength))
	}
	if s[0] == '-' || s[len(s)-1] == '-' || strings.Contains(s, "--") {
		return Username{}, pkgerrors.NewValidationError("username cannot start or end with a hyphen or contain consecutive hyphens")
	}
	for _, r := range s {
		if !isASCIIAlnum(r) && r != '-' {
			return Username{}, pkgerrors.NewValidationError("username may only contain letters, numbers and hyphens")
		}
	}
	return Username{value: s}, nil
}

func (u Username) String() string { return u.value }

// ScoreValue is a user's rating of a graph part.
type ScoreValue int

// NewScoreValue validates a score against the configured range
func NewScoreValue(v int) (ScoreValue, error) {
	cfg := config.DefaultDomainConfig()
	if v < cfg.MinScore || v > cfg.MaxScore {
		return 0, pkgerrors.NewValidationError(
			fmt.Sprintf("score must be between %d and %d", cfg.MinScore, cfg.MaxScore))
	}
	return ScoreValue(v), nil
}

func (s ScoreValue) Int() int { return int(s) }

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Tags usable in `validate` struct tags of commands and queries.
func init() {
	utils.RegisterValidation("topic_title", func(v string) bool {
		_, err := NewTitle(v)
		return err == nil
	})
	utils.RegisterValidation("username", func(v string) bool {
		_, err := NewUsername(v)
		return err == nil
	})
	utils.RegisterValidation("node_type", func(v string) bool {
		return NodeType(v).IsValid()
	})
	utils.RegisterValidation("relation_name", func(v string) bool {
		return RelationName(v).IsValid()
	})
	utils.RegisterValidation("relation_direction", func(v string) bool {
		return RelationDirection(v).IsValid()
	})
}
