package dice

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxDice and MaxSides bound a parsed expression; notation beyond them is
// treated as unparsable so a content typo cannot allocate without limit.
const (
	MaxDice  = 1000
	MaxSides = 1000
)

var notationPattern = regexp.MustCompile(`(?i)(\d*)d(\d+)([+-]\d+)?`)

// Expression is a parsed dice notation such as "2d6+3".
//
// Invariant: 1 <= Count <= MaxDice and 1 <= Sides <= MaxSides for expressions
// returned by Parse with ok == true.
type Expression struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

// Parse parses notation of the form (\d*)d(\d+)([+-]\d+)?, case-insensitive.
// An absent count defaults to 1 and an absent modifier to 0.
//
// Postcondition: ok is false when notation does not match or its count or sides
// fall outside [1, MaxDice] and [1, MaxSides]; the returned Expression is then
// the zero value.
func Parse(notation string) (Expression, bool) {
	m := notationPattern.FindStringSubmatch(notation)
	if m == nil {
		return Expression{}, false
	}
	count := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Expression{}, false
		}
		count = n
	}
	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return Expression{}, false
	}
	modifier := 0
	if m[3] != "" {
		modifier, err = strconv.Atoi(m[3])
		if err != nil {
			return Expression{}, false
		}
	}
	if count < 1 || sides < 1 || count > MaxDice || sides > MaxSides {
		return Expression{}, false
	}
	return Expression{Raw: notation, Count: count, Sides: sides, Modifier: modifier}, true
}

// Literal interprets notation as an integer constant floored at minimum.
// Anything that is not an integer yields minimum.
//
// Postcondition: return value >= minimum.
func Literal(notation string, minimum int) int {
	n, err := strconv.Atoi(strings.TrimSpace(notation))
	if err != nil || n < minimum {
		return minimum
	}
	return n
}

// Valid reports whether notation is usable as damage: parsable dice within
// the limits, or a plain integer.
func Valid(notation string) bool {
	if _, ok := Parse(notation); ok {
		return true
	}
	_, err := strconv.Atoi(strings.TrimSpace(notation))
	return err == nil
}

// String renders the expression in canonical notation, e.g. "2d6+3".
func (e Expression) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(e.Count))
	b.WriteByte('d')
	b.WriteString(strconv.Itoa(e.Sides))
	if e.Modifier != 0 {
		if e.Modifier > 0 {
			b.WriteByte('+')
		}
		b.WriteString(strconv.Itoa(e.Modifier))
	}
	return b.String()
}
