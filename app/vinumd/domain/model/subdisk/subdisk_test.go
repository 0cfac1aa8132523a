package subdisk

import "testing"

func TestInitializable(t *testing.T) {
	testCases := []struct {
		state State
		ok    bool
	}{
		{Uninit, true},
		{Empty, true},
		{Initialized, true},
		{Stale, true},
		{Obsolete, true},
		{Initializing, false},
		{Crashed, false},
		{Down, false},
		{Reviving, false},
		{Reborn, false},
		{Up, false},
	}

	for _, c := range testCases {
		if ok := c.state.Initializable(); ok != c.ok {
			t.Errorf("%s: got %v, expected %v", c.state, ok, c.ok)
		}
	}
}
