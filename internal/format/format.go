// Package format turns raw record values into the text shown in table cells.
package format

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// IDColumn is the key of the identifier column of every grid.
const IDColumn = "id"

const (
	shortIDLen = 8
	dateLayout = "02/01/2006"
)

// Location is the zone timestamps are shown in. Date-only values are never
// shifted.
var Location = loadLocation("America/Sao_Paulo")

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
}

var dateOnlyLayouts = []string{
	time.DateOnly,
	"2006/01/02",
}

// Cell renders one value of column key. The identifier check runs before
// date detection, so an id that happens to parse as a date is still shortened.
func Cell(key string, v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok && key == IDColumn {
		return ShortID(s)
	}

	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.In(Location).Format(dateLayout)
	case *time.Time:
		if val == nil || val.IsZero() {
			return ""
		}
		return val.In(Location).Format(dateLayout)
	case string:
		if d, ok := ParseDate(val); ok {
			return d
		}
		return val
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprint(v)
}

// ShortID keeps the first eight characters of a GUID-like id, upper-cased.
// It only changes what is displayed; links keep the full id.
func ShortID(id string) string {
	r := []rune(id)
	if len(r) > shortIDLen {
		r = r[:shortIDLen]
	}
	return strings.ToUpper(string(r))
}

// ParseDate reports whether s is a date and, if so, its dd/mm/yyyy form.
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len("2006-01-02") {
		return "", false
	}
	for _, layout := range dateOnlyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLayout), true
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if !hasZone(layout) {
				return t.Format(dateLayout), true
			}
			return t.In(Location).Format(dateLayout), true
		}
	}
	return "", false
}

func hasZone(layout string) bool {
	return strings.Contains(layout, "Z07") || strings.Contains(layout, "MST") || strings.Contains(layout, "-0700")
}

// Money renders a price in reais.
func Money(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	out := "R$ " + b.String() + "," + frac
	if neg {
		return "-" + out
	}
	return out
}
