package plex

import "testing"

func TestStateOrdering(t *testing.T) {
	testCases := []struct {
		state      State
		accessible bool
		up         bool
	}{
		{Unallocated, false, false},
		{Init, false, false},
		{Faulty, false, false},
		{Down, false, false},
		{Corrupt, true, false},
		{Flaky, true, true},
		{Degraded, true, true},
		{Initializing, true, true},
		{Up, true, true},
	}

	for _, c := range testCases {
		if got := c.state >= Accessible; got != c.accessible {
			t.Errorf("%s: accessible got %v, expected %v", c.state, got, c.accessible)
		}
		if got := c.state >= FirstUp; got != c.up {
			t.Errorf("%s: first up got %v, expected %v", c.state, got, c.up)
		}
	}
}

func TestParse(t *testing.T) {
	for s := Unallocated; s <= Up; s++ {
		got, err := ParseState(s.String())
		if err != nil || got != s {
			t.Errorf("%s: got %v, %v", s, got, err)
		}
	}
	if _, err := ParseState("bogus"); err != ErrInvalidState {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	for _, name := range []string{"raid4", "raid5"} {
		o, err := ParseOrganization(name)
		if err != nil {
			t.Fatal(err)
		}
		if !o.IsParity() {
			t.Errorf("%s: expected parity organization", name)
		}
	}
	if Concat.IsParity() || Striped.IsParity() {
		t.Error("concat and striped are not parity organizations")
	}
}
