package document

import (
	"fmt"
	"strconv"
	"strings"
)

// NumberFormat renders sequence ordinals as human-readable document numbers.
type NumberFormat struct {
	Prefix string
	Width  int
}

// DefaultNumberFormat matches "DOC-0000001".
var DefaultNumberFormat = NumberFormat{Prefix: "DOC-", Width: 7}

// Format renders ordinal n, zero padded to Width digits.
func (f NumberFormat) Format(n int64) string {
	width := f.Width
	if width <= 0 {
		width = 1
	}
	return fmt.Sprintf("%s%0*d", f.Prefix, width, n)
}

// Parse extracts the ordinal from a formatted number.
func (f NumberFormat) Parse(number string) (int64, error) {
	digits, ok := strings.CutPrefix(number, f.Prefix)
	if !ok {
		return 0, fmt.Errorf("document number %q lacks prefix %q", number, f.Prefix)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("document number %q: %w", number, err)
	}
	return n, nil
}
