package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"community_ops_bot/internal/domain/shiftlog"
	idb "community_ops_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// LoggedMessage is what the formatting layer needs to render a change
// post: the stored entry, its ordinal within the (date, shift) bucket, and
// the author's nickname for that shift ("" when none is configured).
type LoggedMessage struct {
	Entry        *shiftlog.Entry
	ChangeNumber int
	DisplayName  string
}

// ShiftLogService owns the shift-indexed logging commands: change
// messages with allocated change numbers, and success log entries.
type ShiftLogService struct {
	entries   shiftlog.Repository
	nicknames shiftlog.NicknameRepository
	loc       *time.Location
	log       *logrus.Logger
	now       func() time.Time
}

func NewShiftLogService(entries shiftlog.Repository, nicknames shiftlog.NicknameRepository, loc *time.Location, log *logrus.Logger) *ShiftLogService {
	return &ShiftLogService{
		entries:   entries,
		nicknames: nicknames,
		loc:       loc,
		log:       log,
		now:       time.Now,
	}
}

// LogMessage resolves the current shift, allocates the next change number
// in its (date, shift) bucket and appends the entry.
//
// The count-then-insert below is not atomic: two concurrent calls on the
// same bucket can read the same count and collide on the ordinal. The
// contract only guarantees ordinal >= prior entry count at call time;
// duplicates under concurrency are a known, accepted limitation at this
// bot's write rate.
func (s *ShiftLogService) LogMessage(ctx context.Context, authorID int64, profileLabel, content string) (*LoggedMessage, error) {
	now := s.now().In(s.loc)
	shift := shiftlog.ResolveShift(now, s.loc)

	changeNumber, err := s.NextChangeNumber(ctx, now, shift)
	if err != nil {
		return nil, err
	}

	entry := &shiftlog.Entry{
		AuthorID:     authorID,
		ProfileLabel: nullString(profileLabel),
		Content:      content,
		Timestamp:    now,
		Shift:        shift,
	}
	if err := s.entries.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert change log entry: %w", err)
	}

	// The info line is only rendered when a profile is used, so the
	// nickname lookup is skipped otherwise.
	displayName := ""
	if profileLabel != "" {
		displayName = s.operatorNickname(ctx, authorID, shift)
	}

	s.log.WithFields(logrus.Fields{
		"entry_id":      entry.ID,
		"author_id":     authorID,
		"shift":         shift,
		"change_number": changeNumber,
	}).Info("Change message logged")
	return &LoggedMessage{Entry: entry, ChangeNumber: changeNumber, DisplayName: displayName}, nil
}

// operatorNickname resolves the author's label for the shift. Missing
// nicknames are normal and resolve to ""; the caller falls back to the
// sender's own name.
func (s *ShiftLogService) operatorNickname(ctx context.Context, authorID int64, shift shiftlog.Shift) string {
	n, err := s.nicknames.Get(ctx, authorID)
	if err != nil {
		if !errors.Is(err, idb.ErrNicknamesNotFound) {
			s.log.WithError(err).WithField("author_id", authorID).Warn("Could not resolve operator nickname")
		}
		return ""
	}
	label, _ := n.ForShift(shift)
	return label
}

// NextChangeNumber returns the next ordinal for the given bucket: the
// count of existing entries plus one.
func (s *ShiftLogService) NextChangeNumber(ctx context.Context, day time.Time, shift shiftlog.Shift) (int, error) {
	count, err := s.entries.CountByBucket(ctx, day, shift, s.loc)
	if err != nil {
		return 0, fmt.Errorf("failed to count bucket entries: %w", err)
	}
	return count + 1, nil
}

// LogSuccess appends a success entry. It shares the shift-indexed table
// but carries no profile label and no surfaced change number.
func (s *ShiftLogService) LogSuccess(ctx context.Context, authorID int64, content string) (*shiftlog.Entry, error) {
	now := s.now().In(s.loc)
	entry := &shiftlog.Entry{
		AuthorID:  authorID,
		Content:   content,
		Timestamp: now,
		Shift:     shiftlog.ResolveShift(now, s.loc),
	}
	if err := s.entries.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert success entry: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"entry_id":  entry.ID,
		"author_id": authorID,
	}).Info("Success logged")
	return entry, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
