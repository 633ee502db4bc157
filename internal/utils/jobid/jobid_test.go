package jobid

import (
	"sort"
	"testing"
)

func TestNewIsValidAndOrdered(t *testing.T) {
	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		id := New()
		if !IsValid(id) {
			t.Fatalf("New() = %q is not valid", id)
		}
		ids = append(ids, id)
	}
	if !sort.StringsAreSorted(ids) {
		t.Errorf("ids are not monotonic: %v", ids)
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"job_01hqz5k3m8x0c2v4b6n8p0r2t4", true},
		{"jan_01hqz5k3m8x0c2v4b6n8p0r2t4", false},
		{"job_not-a-ulid", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValid(tt.in); got != tt.want {
			t.Errorf("IsValid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
