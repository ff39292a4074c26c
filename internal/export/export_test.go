package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/Joseda-hg/taskdock/internal/model"
)

func TestTasksWritesHeaderAndRows(t *testing.T) {
	due := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "1", Title: "Buy milk", Priority: model.PriorityHigh, Status: model.StatusPending, DueDate: &due,
			Tags: []model.Tag{{Name: "home"}, {Name: "errand"}}},
		{ID: "2", Title: "Call mom", Priority: model.PriorityLow, Status: model.StatusCompleted},
	}

	var buf bytes.Buffer
	if err := Tasks(&buf, tasks); err != nil {
		t.Fatalf("export: %v", err)
	}

	file, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer file.Close()

	rows, err := file.GetRows(SheetName)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if diff := cmp.Diff(header, rows[0]); diff != "" {
		t.Fatalf("unexpected header (-want +got):\n%s", diff)
	}
	want := []string{"1", "Buy milk", "", "HIGH", "PENDING", "2026-04-02", "home, errand"}
	if diff := cmp.Diff(want, rows[1]); diff != "" {
		t.Fatalf("unexpected first row (-want +got):\n%s", diff)
	}
}
