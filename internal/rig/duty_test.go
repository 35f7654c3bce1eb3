package rig

import "testing"

func TestDutyFromPercent(t *testing.T) {
	cases := []struct {
		percent int
		want    uint16
	}{
		{0, 0},
		{1, 655},
		{25, 16384},
		{50, 32768},
		{75, 49151},
		{99, 64880},
		{100, 65535},
		// Out-of-range inputs clamp.
		{-5, 0},
		{101, 65535},
		{1000, 65535},
	}
	for _, c := range cases {
		if got := DutyFromPercent(c.percent); got != c.want {
			t.Fatalf("DutyFromPercent(%d)=%d want %d", c.percent, got, c.want)
		}
	}
}

func TestDutyFromPercentMonotonic(t *testing.T) {
	prev := DutyFromPercent(0)
	for p := 1; p <= 100; p++ {
		cur := DutyFromPercent(p)
		if cur <= prev {
			t.Fatalf("duty not increasing at %d%%: %d then %d", p, prev, cur)
		}
		prev = cur
	}
}
