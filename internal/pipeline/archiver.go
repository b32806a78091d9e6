package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// LogArchiver uploads the day's log files to cold storage.
type LogArchiver interface {
	ArchiveLogs(ctx context.Context, day time.Time) (int, error)
}

// Archiver runs log archival, either once or on a cron schedule.
type Archiver struct {
	uploader LogArchiver
	logger   *slog.Logger
}

// NewArchiver creates a new Archiver.
func NewArchiver(uploader LogArchiver, logger *slog.Logger) *Archiver {
	return &Archiver{
		uploader: uploader,
		logger:   logger.With(slog.String("component", "archiver")),
	}
}

// Run executes a single archive pass for today's logs.
func (a *Archiver) Run(ctx context.Context) error {
	day := time.Now().UTC()
	a.logger.Info("starting archive run", slog.String("day", day.Format("2006-01-02")))

	archived, err := a.uploader.ArchiveLogs(ctx, day)
	if err != nil {
		return fmt.Errorf("archiving logs for %s: %w", day.Format("2006-01-02"), err)
	}

	a.logger.Info("archive run complete", slog.Int("files_archived", archived))
	return nil
}

// RunCron repeats archive passes on a 5-field cron schedule
// ("minute hour day-of-month month day-of-week") until the context is
// cancelled. A failed pass is logged and the schedule keeps going.
func (a *Archiver) RunCron(ctx context.Context, expr string) error {
	a.logger.Info("archiver cron started", slog.String("cron", expr))

	for {
		next, err := nextCronTime(expr, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("cron schedule %q: %w", expr, err)
		}

		a.logger.Info("next archive pass scheduled",
			slog.Time("at", next),
			slog.Duration("in", time.Until(next)),
		)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			a.logger.Info("archiver cron stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if err := a.Run(ctx); err != nil {
			a.logger.Error("archive pass failed", slog.String("error", err.Error()))
		}
	}
}

// cronField is one schedule field, stored as a bit set over the field's value
// range. A zero mask means wildcard.
type cronField struct {
	mask uint64
}

func (f cronField) matches(v int) bool {
	if f.mask == 0 {
		return true
	}
	return v >= 0 && v < 64 && f.mask&(1<<uint(v)) != 0
}

// parseCronField accepts "*", single values, ranges ("1-5"), and comma lists
// of either ("0,30", "1-3,7").
func parseCronField(field string) (cronField, error) {
	if field == "*" {
		return cronField{}, nil
	}

	var mask uint64
	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)
		lo, hi, ok := strings.Cut(part, "-")
		from, err := strconv.Atoi(lo)
		if err != nil {
			return cronField{}, fmt.Errorf("bad cron value %q: %w", part, err)
		}
		to := from
		if ok {
			if to, err = strconv.Atoi(hi); err != nil {
				return cronField{}, fmt.Errorf("bad cron range %q: %w", part, err)
			}
		}
		if from < 0 || to > 63 || from > to {
			return cronField{}, fmt.Errorf("cron value %q out of range", part)
		}
		for v := from; v <= to; v++ {
			mask |= 1 << uint(v)
		}
	}
	return cronField{mask: mask}, nil
}

// parsedCron is a 5-field cron schedule.
type parsedCron struct {
	minute     cronField
	hour       cronField
	dayOfMonth cronField
	month      cronField
	dayOfWeek  cronField
}

func parseCron(expr string) (parsedCron, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return parsedCron{}, fmt.Errorf("want 5 cron fields, got %d", len(fields))
	}

	var c parsedCron
	for i, dst := range []*cronField{&c.minute, &c.hour, &c.dayOfMonth, &c.month, &c.dayOfWeek} {
		f, err := parseCronField(fields[i])
		if err != nil {
			return parsedCron{}, err
		}
		*dst = f
	}
	return c, nil
}

func (c parsedCron) matchesTime(t time.Time) bool {
	return c.minute.matches(t.Minute()) &&
		c.hour.matches(t.Hour()) &&
		c.dayOfMonth.matches(t.Day()) &&
		c.month.matches(int(t.Month())) &&
		c.dayOfWeek.matches(int(t.Weekday()))
}

// nextCronTime finds the first minute boundary after 'after' that the
// expression matches. The scan is bounded at a year; every valid 5-field
// expression matches well within that.
func nextCronTime(expr string, after time.Time) (time.Time, error) {
	c, err := parseCron(expr)
	if err != nil {
		return time.Time{}, err
	}

	t := after.Truncate(time.Minute).Add(time.Minute)
	for end := after.AddDate(1, 0, 1); t.Before(end); t = t.Add(time.Minute) {
		if c.matchesTime(t) {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cron %q never fires", expr)
}
