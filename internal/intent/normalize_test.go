package intent

import "testing"

func TestNormalizeTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2026-09-02T14:00:00Z", "2026-09-02T14:00:00Z", true},
		{"2026-09-02 14:00", "2026-09-02T14:00:00Z", true},
		{"2026-09-02", "2026-09-02T00:00:00Z", true},
		{"January 2, 2026 3:04 PM", "2026-01-02T15:04:00Z", true},
		{"whenever works", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := NormalizeTime(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("NormalizeTime(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	if got, ok := NormalizePhone("(555) 123-4567", "US"); !ok || got != "+15551234567" {
		t.Fatalf("unexpected: %q %v", got, ok)
	}
	if got, ok := NormalizePhone("+15551234567", ""); !ok || got != "+15551234567" {
		t.Fatalf("unexpected: %q %v", got, ok)
	}
	if _, ok := NormalizePhone("not a number", "US"); ok {
		t.Fatalf("expected invalid")
	}
	if _, ok := NormalizePhone("123", "US"); ok {
		t.Fatalf("expected invalid short number")
	}
}

func TestParse_ClosedSet(t *testing.T) {
	for _, i := range All() {
		if Parse(string(i)) != i {
			t.Fatalf("round trip failed for %q", i)
		}
	}
	if Parse("set_the_building_on_fire") != Unknown {
		t.Fatalf("expected unknown default")
	}
}
