package telemetry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := OpenArchive(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestArchive_SaveLoadPrune(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t)

	old := goodRecord(testNow.Add(-48 * time.Hour))
	fresh := goodRecord(testNow.Add(-time.Minute))
	fresh.Fallbacks = []string{FallbackNameCapitalized, FallbackGoalDefault}
	fresh.Error = true
	fresh.QualityScore = QualityScore(fresh)

	require.NoError(t, a.Save(ctx, []ParsingRecord{old, fresh}))
	require.NoError(t, a.Save(ctx, nil))

	got, err := a.Load(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Timestamp.Equal(old.Timestamp))
	assert.Equal(t, fresh.SessionID, got[1].SessionID)
	assert.Equal(t, fresh.Fallbacks, got[1].Fallbacks)
	assert.True(t, got[1].Error)
	assert.True(t, got[1].Name.Extracted)
	assert.InDelta(t, fresh.Amount.Confidence, got[1].Amount.Confidence, 1e-9)
	assert.Equal(t, "LOW", got[1].Urgency)

	n, err := a.PruneBefore(ctx, testNow.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = a.Load(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRecorder_FlushAdvancesCursor(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t)
	r, _ := newTestRecorder(DefaultConfig())

	r.RecordParsing(goodRecord(testNow.Add(-2 * time.Minute)))
	r.RecordParsing(goodRecord(testNow.Add(-time.Minute)))

	cursor, err := r.Flush(ctx, a, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), cursor)

	again, err := r.Flush(ctx, a, cursor)
	require.NoError(t, err)
	assert.Equal(t, cursor, again)

	r.RecordParsing(goodRecord(testNow))
	_, err = r.Flush(ctx, a, cursor)
	require.NoError(t, err)

	got, err := a.Load(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestRecorder_FlushKeepsRecordsSharingATimestamp(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t)
	r, _ := newTestRecorder(DefaultConfig())

	r.RecordParsing(goodRecord(testNow))
	cursor, err := r.Flush(ctx, a, 0)
	require.NoError(t, err)

	// Same clock reading as the record already flushed.
	r.RecordParsing(goodRecord(testNow))
	r.RecordParsing(goodRecord(testNow))
	cursor, err = r.Flush(ctx, a, cursor)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), cursor)

	_, err = r.Flush(ctx, a, cursor)
	require.NoError(t, err)

	got, err := a.Load(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
