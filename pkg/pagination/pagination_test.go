package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 6, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("empty cursor should be nil, got %v %v", c, err)
	}
	for _, raw := range []string{"!!!", "bm90LWEtY3Vyc29y"} {
		if _, err := ParseCursor(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestNormalizeLimit(t *testing.T) {
	if NormalizeLimit(0) != DefaultLimit || NormalizeLimit(-3) != DefaultLimit {
		t.Fatal("non-positive limits use the default")
	}
	if NormalizeLimit(500) != MaxLimit {
		t.Fatal("limits are capped")
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatal("buffer adds one row")
	}
}

func TestTrim(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	cursorOf := func(i int) Cursor { return Cursor{CreatedAt: base.Add(time.Duration(i) * time.Hour), ID: ids[i]} }

	rows, next := Trim([]int{0, 1, 2}, 2, cursorOf)
	if len(rows) != 2 || next == "" {
		t.Fatalf("expected trimmed page with cursor, got %v %q", rows, next)
	}
	parsed, err := ParseCursor(next)
	if err != nil || parsed.ID != ids[1] {
		t.Fatalf("cursor should point at last kept row: %v %v", parsed, err)
	}

	rows, next = Trim([]int{0, 1}, 2, cursorOf)
	if len(rows) != 2 || next != "" {
		t.Fatalf("last page has no cursor, got %v %q", rows, next)
	}
}
