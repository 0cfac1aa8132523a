package uuid

import (
	"regexp"
	"testing"
)

func TestGen(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := Gen()
		if !re.MatchString(id) {
			t.Errorf("%s is not a version 4 uuid", id)
		}
		if seen[id] {
			t.Errorf("duplicated uuid %s", id)
		}
		seen[id] = true
	}
}
