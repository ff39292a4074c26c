// Package export writes task lists to spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Joseda-hg/taskdock/internal/model"
)

const SheetName = "Tasks"

var header = []string{"ID", "Title", "Description", "Priority", "Status", "Due", "Tags", "Created", "Updated"}

// Tasks writes one row per task, after a bold header row, to w as .xlsx.
func Tasks(w io.Writer, tasks []model.Task) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sw, err := file.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	headerRow := make([]any, 0, len(header))
	for _, title := range header {
		headerRow = append(headerRow, excelize.Cell{StyleID: bold, Value: title})
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return err
	}

	for i, task := range tasks {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, taskRow(task)); err != nil {
			return fmt.Errorf("write task %s: %w", task.ID, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = file.WriteTo(w)
	return err
}

func taskRow(task model.Task) []any {
	due := ""
	if task.DueDate != nil {
		due = task.DueDate.Format("2006-01-02")
	}
	names := make([]string, 0, len(task.Tags))
	for _, tag := range task.Tags {
		names = append(names, tag.Name)
	}
	return []any{
		task.ID,
		task.Title,
		task.Description,
		string(task.Priority),
		string(task.Status),
		due,
		strings.Join(names, ", "),
		stamp(task.CreatedAt),
		stamp(task.UpdatedAt),
	}
}

func stamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Local().Format("2006-01-02 15:04")
}
