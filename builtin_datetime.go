// builtin_datetime.go — date and time functions.
//
// Dates travel through transformations as ISO-8601 strings ("2006-01-02"
// or RFC 3339 timestamps); there is no dedicated date kind in the data
// model. now and today read the evaluation clock (Options.Now), so runs
// can be made reproducible by pinning it.
package utlx

import (
	"strings"
	"time"
)

const isoDate = "2006-01-02"

func registerDateTimeBuiltins(r *Registry) {
	r.Register("now",
		Signature{Ret: DateTimeType, Impure: true},
		func(c *Call) Node { return StrNode(c.Now().UTC().Format(time.RFC3339)) },
	)
	setBuiltinDoc(r, "now", `Current timestamp as an RFC 3339 string in UTC.
Reads the evaluation clock; results differ between runs.`)

	r.Register("today",
		Signature{Ret: DateType, Impure: true},
		func(c *Call) Node { return StrNode(c.Now().UTC().Format(isoDate)) },
	)
	setBuiltinDoc(r, "today", `Current date as "YYYY-MM-DD" in UTC.
Reads the evaluation clock; results differ between runs.`)

	r.Register("parseDate",
		Signature{Params: []*TypeDef{StringType, StringType}, Ret: DateType},
		func(c *Call) Node {
			t := mustParseTime(c, c.Str(0), c.Str(1))
			return StrNode(t.Format(isoDate))
		},
	)
	setBuiltinDoc(r, "parseDate", `Parse a date from a layout pattern and
normalize it to "YYYY-MM-DD".

The layout uses the usual field letters: yyyy, MM, dd, HH, mm, ss.

Params:
  s:      Str — input text
  layout: Str — pattern, e.g. "dd/MM/yyyy"

Returns:
  Str — ISO date`)

	r.Register("formatDate",
		Signature{Params: []*TypeDef{DateType, StringType}, Ret: StringType},
		func(c *Call) Node {
			t := mustParseISO(c, c.Str(0))
			return StrNode(t.Format(goLayout(c.Str(1))))
		},
	)
	setBuiltinDoc(r, "formatDate", `Render an ISO date or timestamp with a
layout pattern (yyyy, MM, dd, HH, mm, ss).

Params:
  d:      Str — ISO date or RFC 3339 timestamp
  layout: Str — output pattern

Returns:
  Str`)

	r.Register("addDays",
		Signature{Params: []*TypeDef{DateType, IntegerType}, Ret: DateType},
		func(c *Call) Node {
			t := mustParseISO(c, c.Str(0))
			return StrNode(t.AddDate(0, 0, int(c.Int(1))).Format(isoDate))
		},
	)
	setBuiltinDoc(r, "addDays", `Shift an ISO date by a number of days
(negative moves backward).`)

	r.Register("daysBetween",
		Signature{Params: []*TypeDef{DateType, DateType}, Ret: IntegerType},
		func(c *Call) Node {
			a := mustParseISO(c, c.Str(0))
			b := mustParseISO(c, c.Str(1))
			return IntNode(int64(b.Sub(a).Hours() / 24))
		},
	)
	setBuiltinDoc(r, "daysBetween", `Whole days from the first date to the
second. Negative when the second date is earlier.`)
}

// goLayout translates field-letter patterns (yyyy, MM, dd, ...) into Go's
// reference-time layout. Longest tokens first so "yyyy" wins over "yy".
func goLayout(pattern string) string {
	rep := strings.NewReplacer(
		"yyyy", "2006",
		"yy", "06",
		"MM", "01",
		"dd", "02",
		"HH", "15",
		"mm", "04",
		"ss", "05",
	)
	return rep.Replace(pattern)
}

func mustParseTime(c *Call, s, pattern string) time.Time {
	t, err := time.Parse(goLayout(pattern), s)
	if err != nil {
		c.Failf("%s: %q does not match layout %q", c.Name, s, pattern)
	}
	return t
}

// mustParseISO accepts a bare date or a full RFC 3339 timestamp.
func mustParseISO(c *Call, s string) time.Time {
	if t, err := time.Parse(isoDate, s); err == nil {
		return t
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		c.Failf("%s: %q is not an ISO date or timestamp", c.Name, s)
	}
	return t
}
