package kcpu

import "testing"

func TestFFS32(t *testing.T) {
	cases := []struct {
		v    uint32
		want uint8
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{0b1000, 4},
		{0b1100, 3},
		{1 << 31, 32},
	}
	for _, c := range cases {
		if got := FFS32(c.v); got != c.want {
			t.Fatalf("FFS32(%#b) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestFLS32(t *testing.T) {
	cases := []struct {
		v    uint32
		want uint8
	}{
		{0, 0},
		{1, 1},
		{0b11, 2},
		{0b1000, 4},
		{1 << 31, 32},
		{0xFFFFFFFF, 32},
	}
	for _, c := range cases {
		if got := FLS32(c.v); got != c.want {
			t.Fatalf("FLS32(%#b) = %d, want %d", c.v, got, c.want)
		}
	}
}
