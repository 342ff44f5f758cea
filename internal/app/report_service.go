package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"community_ops_bot/internal/domain/period"
	"community_ops_bot/internal/domain/shiftlog"

	"github.com/sirupsen/logrus"
)

// ErrNoOperatorMatch reports a narrowing filter that is neither a shift
// keyword, an author ID, nor a fragment of any configured nickname.
var ErrNoOperatorMatch = fmt.Errorf("no operator matched the given filter")

// registryRowLimit caps the registry view. When more rows match, the
// report is cut at the ceiling and flagged as truncated rather than
// silently shortened.
const registryRowLimit = 50

// StatsRow is one operator's totals within the report period, with the
// per-shift breakdown.
type StatsRow struct {
	AuthorID int64
	Total    int
	ByShift  map[shiftlog.Shift]int
}

// StatsReport is the per-operator, per-shift count summary.
type StatsReport struct {
	Title string
	Total int
	Rows  []StatsRow // ordered by Total descending
}

// RegistryEntry pairs a stored entry with the display name resolved from
// the per-shift nickname table ("" when none is configured).
type RegistryEntry struct {
	Entry       *shiftlog.Entry
	DisplayName string
}

// RegistryReport is the raw audit view of matching entries.
type RegistryReport struct {
	Title     string
	Entries   []RegistryEntry // newest first
	Truncated bool
}

// ReportService combines the period resolver with the stored log rows to
// produce the statistics and registry views.
type ReportService struct {
	entries   shiftlog.Repository
	nicknames shiftlog.NicknameRepository
	loc       *time.Location
	log       *logrus.Logger
	now       func() time.Time
}

func NewReportService(entries shiftlog.Repository, nicknames shiftlog.NicknameRepository, loc *time.Location, log *logrus.Logger) *ReportService {
	return &ReportService{
		entries:   entries,
		nicknames: nicknames,
		loc:       loc,
		log:       log,
		now:       time.Now,
	}
}

// Stats aggregates matching entries per (operator, shift).
func (s *ReportService) Stats(ctx context.Context, periodRaw, narrowRaw string) (*StatsReport, error) {
	filter, err := period.Resolve(periodRaw, s.now().In(s.loc))
	if err != nil {
		return nil, err
	}
	narrow, titleSuffix, err := s.resolveNarrow(ctx, narrowRaw)
	if err != nil {
		return nil, err
	}

	counts, err := s.entries.CountsByPeriod(ctx, filter, narrow)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate entries: %w", err)
	}

	report := &StatsReport{Title: "Estadísticas " + filter.Title + titleSuffix}
	byAuthor := make(map[int64]*StatsRow)
	for _, bc := range counts {
		row, ok := byAuthor[bc.AuthorID]
		if !ok {
			row = &StatsRow{AuthorID: bc.AuthorID, ByShift: make(map[shiftlog.Shift]int)}
			byAuthor[bc.AuthorID] = row
		}
		row.ByShift[bc.Shift] += bc.Count
		row.Total += bc.Count
		report.Total += bc.Count
	}
	for _, row := range byAuthor {
		report.Rows = append(report.Rows, *row)
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		if report.Rows[i].Total != report.Rows[j].Total {
			return report.Rows[i].Total > report.Rows[j].Total
		}
		return report.Rows[i].AuthorID < report.Rows[j].AuthorID
	})

	s.log.WithFields(logrus.Fields{
		"period":    filter.Title,
		"operators": len(report.Rows),
		"total":     report.Total,
	}).Info("Stats report generated")
	return report, nil
}

// Registry returns the raw matching entries, newest first, truncated at
// the fixed ceiling with a flag.
func (s *ReportService) Registry(ctx context.Context, periodRaw, narrowRaw string) (*RegistryReport, error) {
	filter, err := period.Resolve(periodRaw, s.now().In(s.loc))
	if err != nil {
		return nil, err
	}
	narrow, titleSuffix, err := s.resolveNarrow(ctx, narrowRaw)
	if err != nil {
		return nil, err
	}

	// One extra row tells truncation apart from an exact-limit result.
	rows, err := s.entries.ListByPeriod(ctx, filter, narrow, registryRowLimit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	report := &RegistryReport{Title: "Registro de LMs " + filter.Title + titleSuffix}
	if len(rows) > registryRowLimit {
		rows = rows[:registryRowLimit]
		report.Truncated = true
	}

	labels, err := s.nicknameIndex(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range rows {
		entry := RegistryEntry{Entry: e}
		if n, ok := labels[e.AuthorID]; ok {
			if label, ok := n.ForShift(e.Shift); ok {
				entry.DisplayName = label
			}
		}
		report.Entries = append(report.Entries, entry)
	}

	s.log.WithFields(logrus.Fields{
		"period":    filter.Title,
		"rows":      len(report.Entries),
		"truncated": report.Truncated,
	}).Info("Registry report generated")
	return report, nil
}

// resolveNarrow interprets the optional free-text filter: a shift keyword,
// a numeric author ID, or a fuzzy nickname fragment. An unmatched fragment
// is ErrNoOperatorMatch, never a query against nothing.
func (s *ReportService) resolveNarrow(ctx context.Context, raw string) (shiftlog.EntryFilter, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return shiftlog.EntryFilter{}, "", nil
	}

	if shift, ok := shiftlog.ParseShift(raw); ok {
		return shiftlog.EntryFilter{Shift: shift}, fmt.Sprintf(" (Turno: %s)", shift.Display()), nil
	}

	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return shiftlog.EntryFilter{AuthorIDs: []int64{id}}, fmt.Sprintf(" (Operador: %d)", id), nil
	}

	matches, err := s.nicknames.Search(ctx, raw)
	if err != nil {
		return shiftlog.EntryFilter{}, "", fmt.Errorf("failed to search nicknames: %w", err)
	}
	if len(matches) == 0 {
		return shiftlog.EntryFilter{}, "", ErrNoOperatorMatch
	}
	ids := make([]int64, 0, len(matches))
	for _, n := range matches {
		ids = append(ids, n.UserID)
	}
	return shiftlog.EntryFilter{AuthorIDs: ids}, fmt.Sprintf(" (Apodo: %s)", raw), nil
}

func (s *ReportService) nicknameIndex(ctx context.Context) (map[int64]*shiftlog.Nicknames, error) {
	all, err := s.nicknames.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list nicknames: %w", err)
	}
	index := make(map[int64]*shiftlog.Nicknames, len(all))
	for _, n := range all {
		index[n.UserID] = n
	}
	return index, nil
}
