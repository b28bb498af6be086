package amount

import "testing"

func TestToSmallestUnit(t *testing.T) {
	cases := []struct {
		in       string
		decimals int
		want     string
	}{
		{"1.5", 6, "1500000"},
		{"0.0001", 2, "0"},
		{"2.0", 6, "2000000"},
		{"0", 18, "0"},
		{"0.000000000000000001", 18, "1"},
		{"1000", 0, "1000"},
		{"00.5", 6, "500000"},
		{"1.23456789", 4, "12345"},
	}
	for _, tc := range cases {
		got, err := ToSmallestUnit(tc.in, tc.decimals)
		if err != nil {
			t.Fatalf("ToSmallestUnit(%q, %d): %v", tc.in, tc.decimals, err)
		}
		if got != tc.want {
			t.Fatalf("ToSmallestUnit(%q, %d) = %q, want %q", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestToSmallestUnitRejectsMalformedInput(t *testing.T) {
	for _, in := range []string{"", "-1", "1.5.0", "1e6", "abc", ".5", "1."} {
		if _, err := ToSmallestUnit(in, 6); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestFromSmallestUnit(t *testing.T) {
	cases := []struct {
		in       string
		decimals int
		want     string
	}{
		{"1500000", 6, "1.5"},
		{"1", 18, "0.000000000000000001"},
		{"2000000", 6, "2"},
		{"0", 6, "0"},
		{"1000", 0, "1000"},
	}
	for _, tc := range cases {
		got, err := FromSmallestUnit(tc.in, tc.decimals)
		if err != nil {
			t.Fatalf("FromSmallestUnit(%q, %d): %v", tc.in, tc.decimals, err)
		}
		if got != tc.want {
			t.Fatalf("FromSmallestUnit(%q, %d) = %q, want %q", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestRoundTripTruncates(t *testing.T) {
	base, err := ToSmallestUnit("1.2345678", 6)
	if err != nil {
		t.Fatal(err)
	}
	if base != "1234567" {
		t.Fatalf("expected truncation to 1234567, got %q", base)
	}
	back, err := FromSmallestUnit(base, 6)
	if err != nil {
		t.Fatal(err)
	}
	if back != "1.234567" {
		t.Fatalf("expected 1.234567, got %q", back)
	}
}

func TestMaxUint(t *testing.T) {
	got, err := MaxUint(256)
	if err != nil {
		t.Fatal(err)
	}
	want := "115792089237316195423570985008687907853269984665640564039457584007913129639935"
	if got != want {
		t.Fatalf("MaxUint(256) = %q, want %q", got, want)
	}
	if got, _ := MaxUint(8); got != "255" {
		t.Fatalf("MaxUint(8) = %q, want 255", got)
	}
	for _, bits := range []int{0, -8, 7, 512} {
		if _, err := MaxUint(bits); err == nil {
			t.Fatalf("expected error for width %d", bits)
		}
	}
}

func TestMaxUintIsStable(t *testing.T) {
	a, _ := MaxUint(256)
	b, _ := MaxUint(256)
	if a != b {
		t.Fatal("unlimited approval value must be deterministic")
	}
}
