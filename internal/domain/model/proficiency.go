package model

import (
	"fmt"
	"strings"

	"github.com/okian/allot/internal/domain/capability"
)

// Named proficiency levels used by ticket producers.
const (
	Beginner     capability.Level = 1
	Intermediate capability.Level = 2
	Advanced     capability.Level = 3
)

// ParseProficiency maps a proficiency label (case-insensitive) to its level.
func ParseProficiency(label string) (capability.Level, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "beginner":
		return Beginner, nil
	case "intermediate":
		return Intermediate, nil
	case "advanced":
		return Advanced, nil
	default:
		return 0, fmt.Errorf("%w: unknown proficiency %q", ErrInvalidCapability, label)
	}
}

// ProficiencyLabel returns the label for level, or its number when unnamed.
func ProficiencyLabel(level capability.Level) string {
	switch level {
	case Beginner:
		return "Beginner"
	case Intermediate:
		return "Intermediate"
	case Advanced:
		return "Advanced"
	default:
		return fmt.Sprintf("%d", level)
	}
}
