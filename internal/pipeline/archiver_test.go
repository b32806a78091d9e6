package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	archived int
	err      error
	calls    int
	lastDay  time.Time
}

func (f *fakeUploader) ArchiveLogs(_ context.Context, day time.Time) (int, error) {
	f.calls++
	f.lastDay = day
	return f.archived, f.err
}

func TestArchiverRun_Success(t *testing.T) {
	up := &fakeUploader{archived: 3}
	a := NewArchiver(up, testLogger())

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 1, up.calls)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), up.lastDay.Format("2006-01-02"))
}

func TestArchiverRun_UploadError(t *testing.T) {
	up := &fakeUploader{err: errors.New("bucket gone")}
	a := NewArchiver(up, testLogger())

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archiving logs")
}

func TestRunCron_InvalidExpression(t *testing.T) {
	a := NewArchiver(&fakeUploader{}, testLogger())
	err := a.RunCron(context.Background(), "not a cron")
	assert.Error(t, err)
}

func TestParseCron_FieldCount(t *testing.T) {
	_, err := parseCron("0 3 * *")
	assert.Error(t, err)

	_, err = parseCron("0 3 * * *")
	assert.NoError(t, err)
}

func TestParseCron_ValueLists(t *testing.T) {
	c, err := parseCron("0,30 3 1,15 * *")
	require.NoError(t, err)

	assert.True(t, c.minute.matches(0))
	assert.True(t, c.minute.matches(30))
	assert.False(t, c.minute.matches(15))
	assert.True(t, c.dayOfMonth.matches(15))
	assert.False(t, c.dayOfMonth.matches(2))
	assert.True(t, c.month.matches(7))
}

func TestNextCronTime_DailyAtThree(t *testing.T) {
	after := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	next, err := nextCronTime("0 3 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 27, 3, 0, 0, 0, time.UTC), next)
}

func TestNextCronTime_SameDayWhenStillAhead(t *testing.T) {
	after := time.Date(2026, 8, 26, 1, 30, 0, 0, time.UTC)

	next, err := nextCronTime("0 3 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 26, 3, 0, 0, 0, time.UTC), next)
}

func TestNextCronTime_StartsAtNextMinute(t *testing.T) {
	// A wildcard expression fires at the next minute boundary, never at
	// the current instant.
	after := time.Date(2026, 8, 26, 10, 15, 42, 0, time.UTC)

	next, err := nextCronTime("* * * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 26, 10, 16, 0, 0, time.UTC), next)
}

func TestNextCronTime_MonthlyFirst(t *testing.T) {
	after := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	next, err := nextCronTime("0 3 1 * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC), next)
}
