package core

import "testing"

func TestParseRupiah(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 1, true},
		{"100000", 100000, true},
		{"100.000", 100000, true},
		{"Rp 1.250.000", 1250000, true},
		{" 2.500 ", 2500, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"12,5", 0, false},
		{"", 0, false},
		{"Rp", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseRupiah(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatRupiah(t *testing.T) {
	cases := map[int64]string{
		0:       "Rp 0",
		999:     "Rp 999",
		1000:    "Rp 1.000",
		150000:  "Rp 150.000",
		1250000: "Rp 1.250.000",
		-50000:  "-Rp 50.000",
	}
	for in, want := range cases {
		if got := FormatRupiah(in); got != want {
			t.Fatalf("FormatRupiah(%d) = %q, want %q", in, got, want)
		}
	}
}
