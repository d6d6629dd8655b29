package identity

import "testing"

func TestRefEmpty(t *testing.T) {
	if !(Ref{}).Empty() {
		t.Fatal("zero ref should be empty")
	}
	if !(Ref{Name: "   "}).Empty() {
		t.Fatal("whitespace-only name should be empty")
	}
	if (Ref{Email: "a@b.example"}).Empty() {
		t.Fatal("ref with email is not empty")
	}
}

func TestRefDisplay(t *testing.T) {
	tests := []struct {
		ref  Ref
		want string
	}{
		{Ref{UserID: "u1", Name: "Mara", Email: "mara@example.com"}, "Mara"},
		{Ref{UserID: "u1", Email: "mara@example.com"}, "mara@example.com"},
		{Ref{UserID: "u1"}, "u1"},
	}
	for _, tt := range tests {
		if got := tt.ref.Display(); got != tt.want {
			t.Fatalf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestMatcherPrecedence(t *testing.T) {
	m := Matcher{UserID: "u1", Name: "Mara"}

	if !m.Match(Ref{UserID: "u1", Name: "Someone Else"}) {
		t.Fatal("user ID match must win over a name mismatch")
	}
	if m.Match(Ref{UserID: "u2", Name: "Mara"}) {
		t.Fatal("a conflicting user ID must not fall through to the name")
	}
	if !m.Match(Ref{Name: "mara"}) {
		t.Fatal("expected case-insensitive name fallback without a user ID")
	}

	unregistered := Matcher{Name: "External Client"}
	if !unregistered.Match(Ref{UserID: "u3", Name: "external client"}) {
		t.Fatal("candidate without user ID should match by name")
	}
	if unregistered.Match(Ref{UserID: "u3"}) {
		t.Fatal("no identifying overlap must not match")
	}
}
