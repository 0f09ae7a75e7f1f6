package utils

import "testing"

func TestAtoiDefault_PageParams(t *testing.T) {
	cases := []struct {
		name string
		in   string
		def  int
		want int
	}{
		{"missing page", "", 1, 1},
		{"missing page_size", "", 20, 20},
		{"page", "3", 1, 3},
		{"leading zeros", "007", 1, 7},
		{"negative passes through", "-4", 1, -4},
		{"oversized page_size passes through", "1000", 20, 1000},
		{"word", "ten", 20, 20},
		{"padded", " 2", 1, 1},
		{"decimal", "2.5", 1, 1},
		{"overflow", "99999999999999999999999", 20, 20},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.in, tc.def); got != tc.want {
			t.Fatalf("%s: AtoiDefault(%q, %d) = %d; want %d", tc.name, tc.in, tc.def, got, tc.want)
		}
	}
}
