package form

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func rowIDs(rows []Row) []string {
	out := make([]string, len(rows))
	for idx, row := range rows {
		out[idx] = row.ID
	}
	return out
}

func TestFieldArray_AppendRemovePreservesIdentity(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()
	rows := ctrl.FieldArray("phNumbers")
	if rows.MinRows() != 1 {
		t.Fatalf("expected min rows from definition, got %d", rows.MinRows())
	}

	if err := rows.Append(ctx, map[string]any{"number": "a"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	for i := 0; i < 5; i++ {
		before := rowIDs(rows.Fields())
		if err := rows.Append(ctx, map[string]any{"number": "n"}); err != nil {
			t.Fatalf("append: %v", err)
		}
		appended := rows.Fields()
		if diff := cmp.Diff(before, rowIDs(appended)[:len(before)]); diff != "" {
			t.Fatalf("append changed existing ids (-want +got):\n%s", diff)
		}
		if err := rows.Remove(ctx, 0); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if diff := cmp.Diff(rowIDs(appended)[1:], rowIDs(rows.Fields())); diff != "" {
			t.Fatalf("remove changed surviving ids (-want +got):\n%s", diff)
		}
	}

	seen := map[string]bool{}
	for _, id := range rowIDs(rows.Fields()) {
		if id == "" || seen[id] {
			t.Fatalf("row ids must be unique and non-empty: %v", rowIDs(rows.Fields()))
		}
		seen[id] = true
	}
	if rows.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", rows.Len())
	}
}

func TestFieldArray_MinRowsAndBounds(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()
	rows := ctrl.FieldArray("phNumbers", WithMinRows(1))

	if err := rows.Remove(ctx, 0); !errors.Is(err, ErrMinRows) {
		t.Fatalf("expected ErrMinRows, got %v", err)
	}
	if err := rows.Remove(ctx, 3); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
	if rows.Len() != 1 {
		t.Fatalf("row count changed: %d", rows.Len())
	}
}

func TestFieldArray_RemoveShiftsRowBookkeeping(t *testing.T) {
	ctrl := newTestController(t, WithMode(ModeOnChange))
	ctx := context.Background()
	rows := ctrl.FieldArray("phNumbers")

	_ = rows.Append(ctx, map[string]any{"number": ""})
	_ = rows.Append(ctx, map[string]any{"number": ""})
	_ = ctrl.Change(ctx, "phNumbers.0.number", "1")
	_ = ctrl.Change(ctx, "phNumbers.2.number", "")
	_ = ctrl.Blur(ctx, "phNumbers.2.number")

	if err := rows.Remove(ctx, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	state := ctrl.State()
	if state.Errors.Message("phNumbers.1.number") != "Number is required" {
		t.Fatalf("expected row 2 error to move to row 1: %v", state.Errors)
	}
	if _, ok := state.Errors["phNumbers.2.number"]; ok {
		t.Fatalf("stale error left at removed index")
	}
	if !state.TouchedFields["phNumbers.1.number"] || state.TouchedFields["phNumbers.2.number"] {
		t.Fatalf("touched flags not shifted: %v", state.TouchedFields)
	}
	if !state.IsDirty {
		t.Fatalf("expected dirty after row changes")
	}
}

func TestFieldArray_DirtyTracksRowCount(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()
	rows := ctrl.FieldArray("phNumbers")

	_ = rows.Append(ctx, map[string]any{"number": ""})
	if !ctrl.State().DirtyFields["phNumbers.1.number"] {
		t.Fatalf("appended row should be dirty")
	}
	_ = rows.Remove(ctx, 1)
	if ctrl.State().IsDirty {
		t.Fatalf("removing the appended row should restore a clean form: %v", ctrl.State().DirtyFields)
	}
}

func TestFieldArray_RequiresInit(t *testing.T) {
	ctrl := New()
	rows := ctrl.FieldArray("rows")
	if err := rows.Append(context.Background(), "x"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}
