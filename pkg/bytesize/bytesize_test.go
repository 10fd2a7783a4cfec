package bytesize

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Size
	}{
		{"1024", 1024},
		{"500KB", 500 * KB},
		{"5MB", 5 * MB},
		{"1.5 GB", Size(1.5 * float64(GB))},
		{"2TiB", 2 * TB},
		{"64 mib", 64 * MB},
		{"0", 0},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "MB", "12 lightyears", "1.2.3 GB"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in   Size
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{KB, "1KB"},
		{1536, "1.5KB"},
		{5 * MB, "5MB"},
		{Size(2.25 * float64(GB)), "2.25GB"},
		{-KB, "-1KB"},
	}
	for _, tc := range cases {
		if got := Format(tc.in); got != tc.want {
			t.Errorf("Format(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []Size{KB, 5 * MB, GB, 1536} {
		got, err := Parse(Format(s))
		if err != nil {
			t.Fatalf("Parse(Format(%d)): %v", s, err)
		}
		if got != s {
			t.Errorf("round trip %d != %d", got, s)
		}
	}
}
