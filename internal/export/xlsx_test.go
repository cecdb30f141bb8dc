package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/abhisek/grit/internal/store"
)

func TestWriteXLSX(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	orig := "task-1"
	p := 1
	conf := 60
	data := store.SnapshotData{
		Version: store.StateVersion,
		Tasks: []store.TaskRecord{
			{ID: "task-1", Name: "Run", TimeEstimateMinutes: 30, DecayCost: 1, Status: "skipped", ScheduledDate: "2024-01-10", SkippedAt: &now, CreatedAt: now},
			{ID: "task-2", Name: "Run", TimeEstimateMinutes: 38, DecayCost: 3, IsRecovery: true, OriginalTaskID: &orig, Status: "pending", ScheduledDate: "2024-01-11", Priority: &p, CreatedAt: now},
		},
		Topics: []store.TopicRecord{
			{ID: "topic-1", Topic: "Graphs", Level: 2, IntegrityPercent: 85, DecayState: "due", Priority: "high", Model: "confidence", ConfidenceLevel: &conf, CreatedAt: now},
		},
		Timeline: []store.TimelineRecord{
			{ID: "e-1", Sequence: 1, EntryType: "planner_failure", ReferenceID: "task-1", Title: "Run", Description: "Skipped.", WasAvoided: true, CreatedAt: now},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, data))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetTasks, SheetTopics, SheetTimeline}, f.GetSheetList())

	tasks, err := f.GetRows(SheetTasks)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "Decay cost", tasks[0][6])
	assert.Equal(t, "task-2", tasks[2][0])
	assert.Equal(t, "P1", tasks[2][4])
	assert.Equal(t, "3", tasks[2][6])
	assert.Equal(t, "task-1", tasks[2][8])
	assert.Equal(t, "2024-01-10T08:00:00Z", tasks[1][10])

	topics, err := f.GetRows(SheetTopics)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "Graphs", topics[1][1])
	assert.Equal(t, "60", topics[1][9])

	entries, err := f.GetRows(SheetTimeline)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "planner_failure", entries[1][2])
	assert.Equal(t, "TRUE", entries[1][5])
}

func TestWriteXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, store.SnapshotData{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetTimeline)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}
