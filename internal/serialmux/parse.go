package serialmux

import "strings"

// LineType is the coarse kind of a line printed by a sensor board.
type LineType int

const (
	LineUnknown LineType = iota
	// LineReading is a JSON object carrying sensor channels.
	LineReading
	// LineComment is a boot banner or diagnostic starting with '#'.
	LineComment
)

func (t LineType) String() string {
	switch t {
	case LineReading:
		return "reading"
	case LineComment:
		return "comment"
	default:
		return "unknown"
	}
}

// ClassifyLine inspects a line without decoding it.
func ClassifyLine(line string) LineType {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "#"):
		return LineComment
	case strings.HasPrefix(line, "{") && strings.Contains(line, `"field`):
		return LineReading
	default:
		return LineUnknown
	}
}
