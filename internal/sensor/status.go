package sensor

import (
	"fmt"
	"strings"
)

// Status is the severity classification of a reading. Values are ordered by
// severity: Clear < Smoke < Fire.
type Status int

const (
	Clear Status = iota
	Smoke
	Fire
)

var statusNames = [...]string{"Clear", "Smoke", "Fire"}

func (s Status) String() string {
	if s < Clear || s > Fire {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// MoreSevere reports whether s ranks above other.
func (s Status) MoreSevere(other Status) bool {
	return s > other
}

// ParseStatus accepts the names produced by String, case-insensitively.
func ParseStatus(v string) (Status, error) {
	for i, name := range statusNames {
		if strings.EqualFold(strings.TrimSpace(v), name) {
			return Status(i), nil
		}
	}
	return Clear, fmt.Errorf("unknown status %q", v)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
