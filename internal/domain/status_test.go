package domain

import "testing"

func TestOrderStatus_Valid(t *testing.T) {
	t.Parallel()

	for _, s := range allowedStatuses {
		if !s.Valid() {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if OrderStatus("shipped").Valid() {
		t.Fatalf("unknown status must not be valid")
	}
	if OrderStatus("").Valid() {
		t.Fatalf("empty status must not be valid")
	}
}

func TestOrderStatus_Active(t *testing.T) {
	t.Parallel()

	inactive := map[OrderStatus]bool{StatusDelivered: true, StatusCanceled: true}
	for _, s := range allowedStatuses {
		if got, want := s.Active(), !inactive[s]; got != want {
			t.Fatalf("status %q: Active() = %v, want %v", s, got, want)
		}
	}
}

func TestOrderStatus_Next(t *testing.T) {
	t.Parallel()

	if got := StatusAssigned.Next(); got != StatusPickedUp {
		t.Fatalf("assigned should advance to picked_up, got %q", got)
	}
	for _, s := range []OrderStatus{StatusPickedUp, StatusInTransit, StatusConfirmed} {
		if got := s.Next(); got != StatusDelivered {
			t.Fatalf("status %q should advance to delivered, got %q", s, got)
		}
	}
}

func TestParsePresence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Presence
		ok   bool
	}{
		{"offline", PresenceOffline, true},
		{"online", PresenceOnline, true},
		{"busy", PresenceOnline, true},
		{"idle", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParsePresence(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParsePresence(%q) = %q,%v; want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
