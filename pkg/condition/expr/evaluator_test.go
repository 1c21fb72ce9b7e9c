package expr

import (
	"testing"
)

func TestCompile_Comparisons(t *testing.T) {
	t.Parallel()

	values := map[string]any{
		"channel": "",
		"age":     float64(30),
		"social":  map[string]any{"twitter": "@robin"},
		"agree":   true,
		"rows":    []any{map[string]any{"number": "12"}},
	}

	cases := []struct {
		rule string
		want bool
	}{
		{rule: `channel == ""`, want: true},
		{rule: `channel != ""`, want: false},
		{rule: `channel == ''`, want: true},
		{rule: `age == 30`, want: true},
		{rule: `age != 30`, want: false},
		{rule: `social.twitter == "@robin"`, want: true},
		{rule: `rows.0.number == 12`, want: true},
		{rule: `agree`, want: true},
		{rule: `!agree`, want: false},
		{rule: `agree == true && channel == ""`, want: true},
		{rule: `channel || age == 31`, want: false},
		{rule: `!(channel || age == 31)`, want: true},
		{rule: `missing == null`, want: true},
		{rule: `missing`, want: false},
		{rule: ``, want: false},
	}

	for _, tc := range cases {
		fn, err := New().Compile(tc.rule)
		if err != nil {
			t.Fatalf("compile %q: %v", tc.rule, err)
		}
		if got := fn(values); got != tc.want {
			t.Fatalf("rule %q: want %v, got %v", tc.rule, tc.want, got)
		}
	}
}

func TestCompile_Errors(t *testing.T) {
	t.Parallel()

	for _, rule := range []string{
		`channel = ""`,
		`channel == "`,
		`(channel == ""`,
		`channel ==`,
		`== ""`,
		`channel & age`,
		`channel == age extra`,
	} {
		if _, err := New().Compile(rule); err == nil {
			t.Fatalf("expected compile error for %q", rule)
		}
	}
}

func TestMustCompilePanicsOnInvalidRule(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	MustCompile(`(`)
}
