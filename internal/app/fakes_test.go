package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"community_ops_bot/internal/domain/broadcast"
	"community_ops_bot/internal/domain/period"
	"community_ops_bot/internal/domain/shiftlog"
	idb "community_ops_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeBroadcastRepo is an in-memory broadcast.Repository mirroring the
// Postgres repository's semantics, including the terminal-status CAS.
type fakeBroadcastRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*broadcast.ScheduledBroadcast

	failCreateAfter int // when > 0, Create fails once this many items exist
}

func newFakeBroadcastRepo() *fakeBroadcastRepo {
	return &fakeBroadcastRepo{items: make(map[int64]*broadcast.ScheduledBroadcast)}
}

func (r *fakeBroadcastRepo) Create(_ context.Context, b *broadcast.ScheduledBroadcast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateAfter > 0 && len(r.items) >= r.failCreateAfter {
		return fmt.Errorf("datastore unavailable")
	}
	r.nextID++
	b.ID = r.nextID
	stored := *b
	r.items[b.ID] = &stored
	return nil
}

func (r *fakeBroadcastRepo) ListDue(_ context.Context, now time.Time) ([]*broadcast.ScheduledBroadcast, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*broadcast.ScheduledBroadcast
	for _, b := range r.items {
		if b.Status == broadcast.StatusPending && !b.SendAt.After(now) {
			copied := *b
			due = append(due, &copied)
		}
	}
	return due, nil
}

func (r *fakeBroadcastRepo) ListPending(_ context.Context, originID int64) ([]*broadcast.ScheduledBroadcast, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []*broadcast.ScheduledBroadcast
	for _, b := range r.items {
		if b.Status == broadcast.StatusPending && b.OriginID == originID {
			copied := *b
			pending = append(pending, &copied)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].SendAt.Before(pending[j].SendAt) })
	return pending, nil
}

func (r *fakeBroadcastRepo) DeletePending(_ context.Context, id, originID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok || b.OriginID != originID || b.Status != broadcast.StatusPending {
		return idb.ErrBroadcastNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeBroadcastRepo) MarkStatus(_ context.Context, id int64, status broadcast.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return idb.ErrBroadcastNotFound
	}
	if b.Status == broadcast.StatusPending {
		b.Status = status
		return nil
	}
	if b.Status == status {
		return nil
	}
	return fmt.Errorf("%w: broadcast %d is %s, refusing %s", idb.ErrTerminalStatus, id, b.Status, status)
}

func (r *fakeBroadcastRepo) get(id int64) *broadcast.ScheduledBroadcast {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.items[id]; ok {
		copied := *b
		return &copied
	}
	return nil
}

// fakeEntryRepo is an in-memory shiftlog.Repository. countDelay widens the
// window between the allocator's read and its insert so tests can force
// the interleaving.
type fakeEntryRepo struct {
	mu         sync.Mutex
	nextID     int64
	entries    []*shiftlog.Entry
	loc        *time.Location
	countDelay time.Duration
}

func newFakeEntryRepo(loc *time.Location) *fakeEntryRepo {
	return &fakeEntryRepo{loc: loc}
}

func (r *fakeEntryRepo) Insert(_ context.Context, e *shiftlog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = r.nextID
	stored := *e
	r.entries = append(r.entries, &stored)
	return nil
}

func (r *fakeEntryRepo) CountByBucket(_ context.Context, day time.Time, shift shiftlog.Shift, loc *time.Location) (int, error) {
	r.mu.Lock()
	count := 0
	for _, e := range r.entries {
		if sameDate(e.Timestamp.In(loc), day.In(loc)) && e.Shift == shift {
			count++
		}
	}
	delay := r.countDelay
	r.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return count, nil
}

func (r *fakeEntryRepo) ListByPeriod(_ context.Context, f period.Filter, narrow shiftlog.EntryFilter, limit int) ([]*shiftlog.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*shiftlog.Entry
	for _, e := range r.entries {
		if r.matches(f, narrow, e) {
			copied := *e
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *fakeEntryRepo) CountsByPeriod(_ context.Context, f period.Filter, narrow shiftlog.EntryFilter) ([]shiftlog.BucketCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	type key struct {
		author int64
		shift  shiftlog.Shift
	}
	counts := make(map[key]int)
	for _, e := range r.entries {
		if r.matches(f, narrow, e) {
			counts[key{e.AuthorID, e.Shift}]++
		}
	}
	var result []shiftlog.BucketCount
	for k, n := range counts {
		result = append(result, shiftlog.BucketCount{AuthorID: k.author, Shift: k.shift, Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Count > result[j].Count })
	return result, nil
}

func (r *fakeEntryRepo) matches(f period.Filter, narrow shiftlog.EntryFilter, e *shiftlog.Entry) bool {
	if narrow.Shift != "" && e.Shift != narrow.Shift {
		return false
	}
	if len(narrow.AuthorIDs) > 0 {
		found := false
		for _, id := range narrow.AuthorIDs {
			if e.AuthorID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	local := e.Timestamp.In(r.loc)
	switch f.Kind {
	case period.KindExactDate:
		return sameDate(local, f.Date)
	case period.KindRange:
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, f.Start.Location())
		return !day.Before(f.Start) && !day.After(f.End)
	case period.KindWeek:
		year, week := local.ISOWeek()
		return year == f.ISOYear && week == f.ISOWeek
	case period.KindMonth:
		return local.Year() == f.Year && local.Month() == f.Month
	}
	return false
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// fakeNicknameRepo is an in-memory shiftlog.NicknameRepository.
type fakeNicknameRepo struct {
	items map[int64]*shiftlog.Nicknames
}

func newFakeNicknameRepo() *fakeNicknameRepo {
	return &fakeNicknameRepo{items: make(map[int64]*shiftlog.Nicknames)}
}

func (r *fakeNicknameRepo) put(userID int64, day, evening, night string) {
	n := &shiftlog.Nicknames{UserID: userID}
	if day != "" {
		n.Day.String, n.Day.Valid = day, true
	}
	if evening != "" {
		n.Evening.String, n.Evening.Valid = evening, true
	}
	if night != "" {
		n.Night.String, n.Night.Valid = night, true
	}
	r.items[userID] = n
}

func (r *fakeNicknameRepo) Get(_ context.Context, userID int64) (*shiftlog.Nicknames, error) {
	if n, ok := r.items[userID]; ok {
		return n, nil
	}
	return nil, idb.ErrNicknamesNotFound
}

func (r *fakeNicknameRepo) Search(_ context.Context, fragment string) ([]*shiftlog.Nicknames, error) {
	fragment = strings.ToLower(fragment)
	var result []*shiftlog.Nicknames
	for _, n := range r.items {
		if strings.Contains(strings.ToLower(n.Day.String), fragment) ||
			strings.Contains(strings.ToLower(n.Evening.String), fragment) ||
			strings.Contains(strings.ToLower(n.Night.String), fragment) {
			result = append(result, n)
		}
	}
	return result, nil
}

func (r *fakeNicknameRepo) ListAll(_ context.Context) ([]*shiftlog.Nicknames, error) {
	var result []*shiftlog.Nicknames
	for _, n := range r.items {
		result = append(result, n)
	}
	return result, nil
}

// stubGenerator is a canned ai.Generator recording its prompts.
type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}
