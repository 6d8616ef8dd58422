package matcher

import (
	"strings"
	"time"
)

// NoDate is the sentinel for a value that matched no layout. It never equals
// a real run date.
var NoDate = time.Time{}

// ParseDate tries each layout in order and returns NoDate when none matches.
// Values without a zone are read in loc.
func ParseDate(value string, layouts []string, loc *time.Location) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return NoDate
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.In(loc)
		}
	}
	return NoDate
}

// SameDay reports whether a and b fall on the same calendar day in b's
// location. NoDate matches nothing.
func SameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
