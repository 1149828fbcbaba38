package topic

import "testing"

func mustParse(t *testing.T, s string) Topic {
	t.Helper()
	tp, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): unexpected error: %v", s, err)
	}
	return tp
}

func TestParseInvalid(t *testing.T) {
	cases := []string{"a/#/b", "a/#/#", "", "a//b"}
	for _, s := range cases {
		if _, err := Parse(s); err != ErrInvalid {
			t.Errorf("Parse(%q): expected ErrInvalid, got %v", s, err)
		}
	}
}

func TestParseDegenerateHash(t *testing.T) {
	tp := mustParse(t, "#")
	if len(tp.levels) != 1 || tp.multiIndex != 0 {
		t.Fatalf("unexpected parse of degenerate '#': %+v", tp)
	}
}

func TestMatchesSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"a/b", "a/b"},
		{"a/b", "a/c"},
		{"+/x", "a/x"},
		{"+/x", "a/b/x"},
		{"#", "a/b/c"},
		{"a/#", "a/b/c"},
		{"a/#", "b/c"},
	}
	for _, p := range pairs {
		a, b := mustParse(t, p[0]), mustParse(t, p[1])
		if Matches(a, b) != Matches(b, a) {
			t.Errorf("Matches(%q,%q) not symmetric", p[0], p[1])
		}
	}
}

func TestMatchesExact(t *testing.T) {
	a := mustParse(t, "sensors/temp")
	b := mustParse(t, "sensors/temp")
	c := mustParse(t, "sensors/hum")
	if !Matches(a, b) {
		t.Error("expected exact match")
	}
	if Matches(a, c) {
		t.Error("expected no match for different exact topics")
	}
}

func TestMatchesHashWildcard(t *testing.T) {
	hash := mustParse(t, "#")
	for _, s := range []string{"a", "a/b", "a/b/c/d", "x/y/z"} {
		if !Matches(hash, mustParse(t, s)) {
			t.Errorf("expected '#' to match %q", s)
		}
	}
}

func TestMatchesPlusWildcard(t *testing.T) {
	filter := mustParse(t, "+/x")
	if !Matches(filter, mustParse(t, "a/x")) {
		t.Error("expected +/x to match a/x")
	}
	if Matches(filter, mustParse(t, "a/b/x")) {
		t.Error("expected +/x to not match a/b/x")
	}
}

func TestMatchesWildcardPrefixLevel(t *testing.T) {
	filter := mustParse(t, "+5/x")
	if !Matches(filter, mustParse(t, "a/x")) {
		t.Error("expected a level merely starting with '+' to be ignored in comparison")
	}
}

func TestMatchesPrefixHashTooShort(t *testing.T) {
	filter := mustParse(t, "a/b/c/#")
	if Matches(filter, mustParse(t, "a/b")) {
		t.Error("expected filter with trailing # to not match a topic shorter than its literal prefix")
	}
	if !Matches(filter, mustParse(t, "a/b/c")) {
		t.Error("expected filter with trailing # to match a topic equal to its literal prefix")
	}
	if !Matches(filter, mustParse(t, "a/b/c/d/e")) {
		t.Error("expected filter with trailing # to match a topic longer than its literal prefix")
	}
}
