package paths

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSetAndGet_NestedAndIndexed(t *testing.T) {
	root := map[string]any{
		"phoneNumbers": []any{"", ""},
	}

	if err := Set(root, "social.twitter", "@robin"); err != nil {
		t.Fatalf("set social.twitter: %v", err)
	}
	if err := Set(root, "phoneNumbers.0", "123456789"); err != nil {
		t.Fatalf("set phoneNumbers.0: %v", err)
	}
	if err := Set(root, "phNumbers[1].number", "112312"); err != nil {
		t.Fatalf("set phNumbers[1].number: %v", err)
	}

	want := map[string]any{
		"social":       map[string]any{"twitter": "@robin"},
		"phoneNumbers": []any{"123456789", ""},
		"phNumbers":    []any{nil, map[string]any{"number": "112312"}},
	}
	if diff := cmp.Diff(want, root); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}

	got, ok := Get(root, "phNumbers.1.number")
	if !ok || got != "112312" {
		t.Fatalf("expected 112312, got %v (ok=%v)", got, ok)
	}
	if _, ok := Get(root, "phNumbers.5.number"); ok {
		t.Fatalf("expected out-of-range lookup to fail")
	}
}

func TestSet_RejectsMismatchedContainers(t *testing.T) {
	root := map[string]any{"social": map[string]any{}}
	if err := Set(root, "social.0", "x"); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
	if err := Set(root, "", "x"); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath for empty path, got %v", err)
	}
}

func TestDelete_ShiftsListElements(t *testing.T) {
	root := map[string]any{
		"rows": []any{"a", "b", "c"},
	}
	if err := Delete(root, "rows.0"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if diff := cmp.Diff([]any{"b", "c"}, root["rows"]); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestCloneIsDeep(t *testing.T) {
	src := map[string]any{"social": map[string]any{"twitter": "a"}, "rows": []any{"x"}}
	cloned := CloneMap(src)
	_ = Set(cloned, "social.twitter", "b")
	_ = Set(cloned, "rows.0", "y")

	if got, _ := Get(src, "social.twitter"); got != "a" {
		t.Fatalf("source mutated through clone: %v", got)
	}
	if got, _ := Get(src, "rows.0"); got != "x" {
		t.Fatalf("source list mutated through clone: %v", got)
	}
}

func TestEqual(t *testing.T) {
	day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		a, b any
		want bool
	}{
		{name: "dates by instant", a: day, b: day.In(time.FixedZone("x", 3600)), want: true},
		{name: "nan", a: math.NaN(), b: math.NaN(), want: true},
		{name: "nested", a: map[string]any{"a": []any{"1"}}, b: map[string]any{"a": []any{"1"}}, want: true},
		{name: "length", a: []any{"1"}, b: []any{"1", "2"}, want: false},
		{name: "types", a: "1", b: float64(1), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Equal(tc.a, tc.b); got != tc.want {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
		})
	}
}

func TestLeavesAndMatch(t *testing.T) {
	root := map[string]any{
		"username":  "Robin",
		"phNumbers": []any{map[string]any{"number": "1"}},
		"tags":      []any{},
	}
	want := map[string]any{
		"username":           "Robin",
		"phNumbers.0.number": "1",
		"tags":               []any{},
	}
	if diff := cmp.Diff(want, Leaves(root)); diff != "" {
		t.Fatalf("leaves mismatch (-want +got):\n%s", diff)
	}

	if !Match("phNumbers.*.number", "phNumbers.3.number") {
		t.Fatalf("expected wildcard match")
	}
	if Match("phNumbers.*.number", "phNumbers.3") {
		t.Fatalf("expected length mismatch to fail")
	}
	if !Within("phNumbers.0.number", "phNumbers") || Within("phNumbersX", "phNumbers") {
		t.Fatalf("within prefix check failed")
	}
}

func TestLeavesAt(t *testing.T) {
	root := map[string]any{
		"social":    map[string]any{"twitter": "a", "facebook": "b"},
		"phNumbers": []any{map[string]any{"number": "1"}, map[string]any{"number": "2"}},
	}
	want := map[string]any{"phNumbers.1.number": "2"}
	if diff := cmp.Diff(want, LeavesAt(root, "phNumbers.1")); diff != "" {
		t.Fatalf("leaves mismatch (-want +got):\n%s", diff)
	}
	if got := LeavesAt(root, "missing"); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
	if got := LeavesAt(root, ""); len(got) != 4 {
		t.Fatalf("expected all leaves, got %v", got)
	}
}
