package period

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.May, 15, 12, 30, 0, 0, time.UTC)

func TestResolve_Today(t *testing.T) {
	f, err := Resolve("hoy", testNow)
	require.NoError(t, err)
	assert.Equal(t, KindExactDate, f.Kind)
	assert.Equal(t, time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC), f.Date)
	assert.Equal(t, "de Hoy", f.Title)
}

func TestResolve_Yesterday(t *testing.T) {
	f, err := Resolve("AYER", testNow)
	require.NoError(t, err)
	assert.Equal(t, KindExactDate, f.Kind)
	assert.Equal(t, time.Date(2024, time.May, 14, 0, 0, 0, 0, time.UTC), f.Date)
	assert.Equal(t, "de Ayer (14-05-2024)", f.Title)
}

func TestResolve_Week(t *testing.T) {
	f, err := Resolve("semana", testNow)
	require.NoError(t, err)
	assert.Equal(t, KindWeek, f.Kind)
	year, week := testNow.ISOWeek()
	assert.Equal(t, year, f.ISOYear)
	assert.Equal(t, week, f.ISOWeek)
	assert.Equal(t, "de esta Semana", f.Title)
}

func TestResolve_Month(t *testing.T) {
	f, err := Resolve("mes", testNow)
	require.NoError(t, err)
	assert.Equal(t, KindMonth, f.Kind)
	assert.Equal(t, 2024, f.Year)
	assert.Equal(t, time.May, f.Month)
	assert.Equal(t, "de este Mes", f.Title)
}

func TestResolve_ExactDate(t *testing.T) {
	f, err := Resolve("2024-01-05", testNow)
	require.NoError(t, err)
	assert.Equal(t, KindExactDate, f.Kind)
	assert.Equal(t, time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), f.Date)
	assert.Equal(t, "del 05-01-2024", f.Title)
}

func TestResolve_Range(t *testing.T) {
	f, err := Resolve("2024-01-01 a 2024-01-31", testNow)
	require.NoError(t, err)
	assert.Equal(t, KindRange, f.Kind)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), f.Start)
	assert.Equal(t, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), f.End)
	assert.Equal(t, "de 01/01/2024 a 31/01/2024", f.Title)
}

func TestResolve_MalformedRange(t *testing.T) {
	for _, input := range []string{
		"2024-01-01 a nope",
		"nope a 2024-01-31",
		"2024-01-01 a 2024-01-15 a 2024-01-31",
	} {
		_, err := Resolve(input, testNow)
		var resErr *ResolutionError
		require.ErrorAs(t, err, &resErr, "input %q", input)
		assert.Equal(t, input, resErr.Input)
		assert.NotEmpty(t, resErr.Reason)
	}
}

func TestResolve_UnrecognizedInput(t *testing.T) {
	_, err := Resolve("not-a-period", testNow)
	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Contains(t, resErr.Reason, "hoy")
	assert.Contains(t, resErr.Reason, "AAAA-MM-DD")
}

func TestResolve_UsesNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC-4", -4*60*60)
	// 01:00 UTC on the 15th is still the 14th in UTC-4.
	now := time.Date(2024, time.May, 15, 1, 0, 0, 0, time.UTC).In(loc)

	f, err := Resolve("hoy", now)
	require.NoError(t, err)
	assert.Equal(t, 14, f.Date.Day())
}
