// Package export writes grit state to spreadsheets.
package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/abhisek/grit/internal/store"
)

// Sheet names, in workbook order.
const (
	SheetTasks    = "Tasks"
	SheetTopics   = "Topics"
	SheetTimeline = "Timeline"
)

var (
	taskHeader     = []any{"ID", "Name", "Date", "Time", "Priority", "Estimate (min)", "Decay cost", "Status", "Recovery of", "Completed at", "Skipped at"}
	topicHeader    = []any{"ID", "Topic", "Level", "Reviews", "Integrity %", "Decay", "Mastered", "Priority", "Model", "Confidence", "Next review", "Last reviewed"}
	timelineHeader = []any{"Seq", "Time", "Type", "Title", "Description", "Avoided", "Reference"}
)

// WriteXLSX writes data as a workbook with one sheet each for tasks, topics
// and the timeline.
func WriteXLSX(w io.Writer, data store.SnapshotData) error {
	f, err := Workbook(data)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Workbook builds the workbook in memory. The caller closes it.
func Workbook(data store.SnapshotData) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fill(f, data); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func fill(f *excelize.File, data store.SnapshotData) error {
	// NewFile starts with Sheet1.
	if err := f.SetSheetName("Sheet1", SheetTasks); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetTopics, SheetTimeline} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	taskRows := make([][]any, len(data.Tasks))
	for i, t := range data.Tasks {
		taskRows[i] = []any{
			t.ID, t.Name, t.ScheduledDate, deref(t.ScheduledTime), priority(t.Priority),
			t.TimeEstimateMinutes, t.DecayCost, t.Status, deref(t.OriginalTaskID),
			stamp(t.CompletedAt), stamp(t.SkippedAt),
		}
	}
	topicRows := make([][]any, len(data.Topics))
	for i, t := range data.Topics {
		conf := ""
		if t.ConfidenceLevel != nil {
			conf = strconv.Itoa(*t.ConfidenceLevel)
		}
		topicRows[i] = []any{
			t.ID, t.Topic, t.Level, t.ReviewCount, t.IntegrityPercent, t.DecayState,
			t.IsMastered, t.Priority, t.Model, conf, stamp(t.NextReviewAt), stamp(t.LastReviewedAt),
		}
	}
	entryRows := make([][]any, len(data.Timeline))
	for i, e := range data.Timeline {
		entryRows[i] = []any{
			e.Sequence, e.CreatedAt.UTC().Format(time.RFC3339), e.EntryType,
			e.Title, e.Description, e.WasAvoided, e.ReferenceID,
		}
	}

	sheets := []struct {
		name   string
		header []any
		rows   [][]any
	}{
		{SheetTasks, taskHeader, taskRows},
		{SheetTopics, topicHeader, topicRows},
		{SheetTimeline, timelineHeader, entryRows},
	}
	for _, sh := range sheets {
		if err := writeSheet(f, sh.name, sh.header, sh.rows, bold); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	err = f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	if err != nil {
		return fmt.Errorf("%s panes: %w", sheet, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func priority(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("P%d", *p)
}

func stamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
