// Package period turns human date expressions ("hoy", "ayer", "semana",
// "mes", an exact date or a date range) into resolved, immutable filters
// consumed by the reporting queries. User input never reaches query text:
// the resolver produces a closed tagged variant and the datastore layer
// builds the predicate from it.
package period

import (
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the closed set of period filters.
type Kind int

const (
	KindExactDate Kind = iota
	KindRange
	KindWeek
	KindMonth
)

// Filter is a resolved date predicate plus the display title composed for
// it. Produced once per Resolve call; callers treat it as immutable.
type Filter struct {
	Kind Kind

	Date time.Time // KindExactDate

	Start time.Time // KindRange
	End   time.Time // KindRange, inclusive

	ISOYear int // KindWeek
	ISOWeek int // KindWeek

	Year  int        // KindMonth
	Month time.Month // KindMonth

	Title string
}

// ResolutionError reports an unparseable period expression. Reason is
// user-facing: callers render it as help text instead of a query result.
type ResolutionError struct {
	Input  string
	Reason string
}

func (e *ResolutionError) Error() string {
	return e.Reason
}

const dateLayout = "2006-01-02"

const (
	helpText      = "Periodo no válido. Usa `hoy`, `ayer`, `semana`, `mes`, una fecha `AAAA-MM-DD` o un rango `AAAA-MM-DD a AAAA-MM-DD`."
	rangeHelpText = "Formato de rango de fechas incorrecto. Usa `AAAA-MM-DD a AAAA-MM-DD`."
)

const rangeSeparator = " a "

// Resolve parses a human period expression against now's calendar and
// location. It never panics on malformed input; anything unrecognized
// comes back as a *ResolutionError.
func Resolve(raw string, now time.Time) (Filter, error) {
	expr := strings.ToLower(strings.TrimSpace(raw))
	today := truncateToDay(now)

	switch expr {
	case "hoy":
		return Filter{Kind: KindExactDate, Date: today, Title: "de Hoy"}, nil
	case "ayer":
		ayer := today.AddDate(0, 0, -1)
		return Filter{
			Kind:  KindExactDate,
			Date:  ayer,
			Title: fmt.Sprintf("de Ayer (%s)", ayer.Format("02-01-2006")),
		}, nil
	case "semana":
		year, week := now.ISOWeek()
		return Filter{Kind: KindWeek, ISOYear: year, ISOWeek: week, Title: "de esta Semana"}, nil
	case "mes":
		return Filter{Kind: KindMonth, Year: now.Year(), Month: now.Month(), Title: "de este Mes"}, nil
	}

	if strings.Contains(expr, rangeSeparator) {
		parts := strings.Split(expr, rangeSeparator)
		if len(parts) != 2 {
			return Filter{}, &ResolutionError{Input: raw, Reason: rangeHelpText}
		}
		start, errStart := time.ParseInLocation(dateLayout, strings.TrimSpace(parts[0]), now.Location())
		end, errEnd := time.ParseInLocation(dateLayout, strings.TrimSpace(parts[1]), now.Location())
		if errStart != nil || errEnd != nil {
			return Filter{}, &ResolutionError{Input: raw, Reason: rangeHelpText}
		}
		return Filter{
			Kind:  KindRange,
			Start: start,
			End:   end,
			Title: fmt.Sprintf("de %s a %s", start.Format("02/01/2006"), end.Format("02/01/2006")),
		}, nil
	}

	if date, err := time.ParseInLocation(dateLayout, expr, now.Location()); err == nil {
		return Filter{
			Kind:  KindExactDate,
			Date:  date,
			Title: fmt.Sprintf("del %s", date.Format("02-01-2006")),
		}, nil
	}

	return Filter{}, &ResolutionError{Input: raw, Reason: helpText}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
