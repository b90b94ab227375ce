package tui

import (
	"math"
	"strings"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// sparkline scales values between their min and max into one row of block
// characters. Non-finite values render as a space.
func sparkline(values []float64) string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	var sb strings.Builder
	for _, v := range values {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			sb.WriteRune(' ')
		case hi <= lo:
			sb.WriteRune(sparkBlocks[0])
		default:
			idx := int((v - lo) / (hi - lo) * float64(len(sparkBlocks)-1))
			sb.WriteRune(sparkBlocks[idx])
		}
	}
	return sb.String()
}
