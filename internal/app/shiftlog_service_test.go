package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"community_ops_bot/internal/domain/shiftlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShiftLogService(repo *fakeEntryRepo, loc *time.Location, now time.Time) *ShiftLogService {
	return newShiftLogServiceWithNicknames(repo, newFakeNicknameRepo(), loc, now)
}

func newShiftLogServiceWithNicknames(repo *fakeEntryRepo, nicknames *fakeNicknameRepo, loc *time.Location, now time.Time) *ShiftLogService {
	svc := NewShiftLogService(repo, nicknames, loc, newTestLogger())
	svc.now = func() time.Time { return now }
	return svc
}

func TestLogMessage_AssignsSequentialChangeNumbers(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, time.June, 1, 10, 0, 0, 0, loc) // day shift
	repo := newFakeEntryRepo(loc)
	svc := newShiftLogService(repo, loc, now)

	for i := 1; i <= 5; i++ {
		logged, err := svc.LogMessage(context.Background(), 42, "", "mensaje")
		require.NoError(t, err)
		assert.Equal(t, i, logged.ChangeNumber)
		assert.Equal(t, shiftlog.ShiftDay, logged.Entry.Shift)
	}
}

func TestLogMessage_BucketsAreIndependent(t *testing.T) {
	loc := time.UTC
	repo := newFakeEntryRepo(loc)

	morning := newShiftLogService(repo, loc, time.Date(2024, time.June, 1, 10, 0, 0, 0, loc))
	evening := newShiftLogService(repo, loc, time.Date(2024, time.June, 1, 16, 0, 0, 0, loc))
	nextDay := newShiftLogService(repo, loc, time.Date(2024, time.June, 2, 10, 0, 0, 0, loc))

	logged, err := morning.LogMessage(context.Background(), 42, "", "a")
	require.NoError(t, err)
	assert.Equal(t, 1, logged.ChangeNumber)

	logged, err = evening.LogMessage(context.Background(), 42, "", "b")
	require.NoError(t, err)
	assert.Equal(t, 1, logged.ChangeNumber, "evening shift is a separate bucket")

	logged, err = nextDay.LogMessage(context.Background(), 42, "", "c")
	require.NoError(t, err)
	assert.Equal(t, 1, logged.ChangeNumber, "next day is a separate bucket")

	logged, err = morning.LogMessage(context.Background(), 7, "", "d")
	require.NoError(t, err)
	assert.Equal(t, 2, logged.ChangeNumber, "bucket is shared across authors")
}

func TestLogMessage_StoresProfileLabel(t *testing.T) {
	loc := time.UTC
	repo := newFakeEntryRepo(loc)
	svc := newShiftLogService(repo, loc, time.Date(2024, time.June, 1, 10, 0, 0, 0, loc))

	logged, err := svc.LogMessage(context.Background(), 42, "luna", "mensaje")
	require.NoError(t, err)
	require.True(t, logged.Entry.ProfileLabel.Valid)
	assert.Equal(t, "luna", logged.Entry.ProfileLabel.String)

	logged, err = svc.LogMessage(context.Background(), 42, "", "mensaje")
	require.NoError(t, err)
	assert.False(t, logged.Entry.ProfileLabel.Valid)
}

func TestLogMessage_ResolvesPerShiftNickname(t *testing.T) {
	loc := time.UTC
	repo := newFakeEntryRepo(loc)
	nicknames := newFakeNicknameRepo()
	nicknames.put(42, "Sol", "Luna", "")

	evening := time.Date(2024, time.June, 1, 16, 0, 0, 0, loc)
	svc := newShiftLogServiceWithNicknames(repo, nicknames, loc, evening)

	logged, err := svc.LogMessage(context.Background(), 42, "gata", "mensaje")
	require.NoError(t, err)
	assert.Equal(t, "Luna", logged.DisplayName)

	// No profile, no info line: the lookup is skipped.
	logged, err = svc.LogMessage(context.Background(), 42, "", "mensaje")
	require.NoError(t, err)
	assert.Empty(t, logged.DisplayName)
}

func TestLogMessage_NoNicknameForShift(t *testing.T) {
	loc := time.UTC
	repo := newFakeEntryRepo(loc)
	nicknames := newFakeNicknameRepo()
	nicknames.put(42, "Sol", "", "") // evening label not configured

	evening := time.Date(2024, time.June, 1, 16, 0, 0, 0, loc)
	svc := newShiftLogServiceWithNicknames(repo, nicknames, loc, evening)

	logged, err := svc.LogMessage(context.Background(), 42, "gata", "mensaje")
	require.NoError(t, err)
	assert.Empty(t, logged.DisplayName)
}

func TestLogMessage_UnknownOperatorNickname(t *testing.T) {
	loc := time.UTC
	repo := newFakeEntryRepo(loc)
	svc := newShiftLogService(repo, loc, time.Date(2024, time.June, 1, 10, 0, 0, 0, loc))

	logged, err := svc.LogMessage(context.Background(), 7, "gata", "mensaje")
	require.NoError(t, err, "a missing nickname row must not fail the command")
	assert.Empty(t, logged.DisplayName)
}

// TestLogMessage_ConcurrentAllocationCollides documents the allocator's
// known limitation: count-then-insert has no atomicity, so two calls that
// interleave on the same bucket read the same count and produce the same
// ordinal.
func TestLogMessage_ConcurrentAllocationCollides(t *testing.T) {
	loc := time.UTC
	repo := newFakeEntryRepo(loc)
	repo.countDelay = 50 * time.Millisecond
	svc := newShiftLogService(repo, loc, time.Date(2024, time.June, 1, 10, 0, 0, 0, loc))

	var wg sync.WaitGroup
	numbers := make([]int, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logged, err := svc.LogMessage(context.Background(), int64(i), "", "carrera")
			if err != nil {
				errs[i] = err
				return
			}
			numbers[i] = logged.ChangeNumber
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	assert.Equal(t, 1, numbers[0])
	assert.Equal(t, 1, numbers[1], "duplicate ordinal: both calls observed the pre-insert count")
}

func TestLogSuccess(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, time.June, 1, 23, 30, 0, 0, loc) // night shift
	repo := newFakeEntryRepo(loc)
	svc := newShiftLogService(repo, loc, now)

	entry, err := svc.LogSuccess(context.Background(), 42, "venta cerrada")
	require.NoError(t, err)
	assert.Equal(t, shiftlog.ShiftNight, entry.Shift)
	assert.False(t, entry.ProfileLabel.Valid)
	assert.NotZero(t, entry.ID)
}
