package id

import (
	"regexp"
	"testing"
)

func TestNewIsHexAndUnique(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9a-f]{32}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		v := New()
		if !pattern.MatchString(v) {
			t.Fatalf("unexpected id format %q", v)
		}
		if _, dup := seen[v]; dup {
			t.Fatalf("duplicate id %q", v)
		}
		seen[v] = struct{}{}
	}
}
