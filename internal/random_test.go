package internal

import (
	"strings"
	"testing"
)

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}
	s := sid.String()
	if len(s) != 43 {
		t.Fatalf("expected 43 char id, got %d (%q)", len(s), s)
	}
	if strings.ContainsAny(s, "+/=") {
		t.Fatalf("id is not base64url without padding: %q", s)
	}

	parsed, err := ParseSessionID(s)
	if err != nil {
		t.Fatalf("ParseSessionID: %v", err)
	}
	if parsed != sid {
		t.Fatal("parsed id differs from generated id")
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id, err := NewSessionIDString()
		if err != nil {
			t.Fatalf("NewSessionIDString: %v", err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate session id after %d draws", i)
		}
		seen[id] = struct{}{}
	}
}

func TestParseSessionIDRejectsWrongSize(t *testing.T) {
	if _, err := ParseSessionID("dG9vLXNob3J0"); err == nil {
		t.Fatal("expected size error")
	}
	if _, err := ParseSessionID("!!!not-base64!!!"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("abc"); got != "abc" {
		t.Fatalf("short ids are kept, got %q", got)
	}
	if got := ShortID("abcdefghijkl"); got != "abcdefgh…" {
		t.Fatalf("unexpected truncation %q", got)
	}
}

// FuzzParseSessionID: no panics, and any accepted input re-encodes to itself.
func FuzzParseSessionID(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	if id, err := NewSessionIDString(); err == nil {
		f.Add(id)
	}

	f.Fuzz(func(t *testing.T, input string) {
		sid, err := ParseSessionID(input)
		if err != nil {
			return
		}
		if sid.String() != input {
			t.Fatalf("accepted non-canonical id %q", input)
		}
	})
}
