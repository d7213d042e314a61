package util

import "testing"

func TestCeilDiv(t *testing.T) {
	cases := []struct{ n, d, want int }{
		{0, 4096, 0},
		{1, 4096, 1},
		{4096, 4096, 1},
		{4097, 4096, 2},
		{1000, 250, 4},
	}
	for _, c := range cases {
		if got := CeilDiv(c.n, c.d); got != c.want {
			t.Errorf("CeilDiv(%d, %d) = %d, want %d", c.n, c.d, got, c.want)
		}
	}
}
