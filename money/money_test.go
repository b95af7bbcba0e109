package money

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"10", "10.00", true},
		{"10.5", "10.50", true},
		{"10.55", "10.55", true},
		{" 3.00 ", "3.00", true},
		{"-4.25", "-4.25", true},
		{"10.555", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.ok != (err == nil) {
			t.Errorf("Parse(%q) error = %v, want ok=%v", tc.in, err, tc.ok)
			continue
		}
		if tc.ok && got.String() != tc.want {
			t.Errorf("Parse(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParsePositive(t *testing.T) {
	if _, err := ParsePositive("0.00"); err == nil {
		t.Error("ParsePositive(0.00) should fail")
	}
	if _, err := ParsePositive("-1.00"); err == nil {
		t.Error("ParsePositive(-1.00) should fail")
	}
	if _, err := ParsePositive("0.01"); err != nil {
		t.Errorf("ParsePositive(0.01) failed: %v", err)
	}
}

func TestArithmetic(t *testing.T) {
	a := New(100, 50)
	b := New(0, 75)

	if got := a.Add(b).String(); got != "101.25" {
		t.Errorf("100.50 + 0.75 = %s, want 101.25", got)
	}
	if got := a.Sub(b).String(); got != "99.75" {
		t.Errorf("100.50 - 0.75 = %s, want 99.75", got)
	}
	if !a.Sub(a).IsZero() {
		t.Error("a - a should be zero")
	}
	if !b.Sub(a).IsNegative() {
		t.Error("0.75 - 100.50 should be negative")
	}
	if !b.LessThan(a) {
		t.Error("0.75 should be less than 100.50")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	a := New(1234, 5)
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"1234.05"` {
		t.Errorf("marshaled as %s, want \"1234.05\"", data)
	}

	var back Amount
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !back.Equal(a) {
		t.Errorf("round trip gave %s, want %s", back, a)
	}
}
