package metrics

import (
	"testing"

	"pgregory.net/rapid"
)

func TestRing_KeepsNewestInOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 8).Draw(t, "capacity")
		values := rapid.SliceOf(rapid.Int()).Draw(t, "values")
		limit := rapid.IntRange(-1, 12).Draw(t, "limit")

		r := newRing[int](capacity)
		for _, v := range values {
			r.push(v)
		}

		want := values
		if len(want) > capacity {
			want = want[len(want)-capacity:]
		}
		if limit < len(want) {
			want = want[len(want)-max(limit, 0):]
		}

		got := r.last(limit)
		if got == nil {
			t.Fatal("last returned nil")
		}
		if len(got) != len(want) {
			t.Fatalf("last(%d) = %v, want %v", limit, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("last(%d) = %v, want %v", limit, got, want)
			}
		}
	})
}
