package service_test

import (
	"testing"

	"doneasy-checkout/internal/service"
)

func TestNormalizePhoneNumber(t *testing.T) {
	cases := map[string]string{
		"081234567890":      "6281234567890",
		"+62 812-3456-7890": "6281234567890",
		"6281234567890":     "6281234567890",
		"81234567890":       "6281234567890",
		"12345":             "",
		"":                  "",
	}
	for in, want := range cases {
		if got := service.NormalizePhoneNumber(in); got != want {
			t.Errorf("NormalizePhoneNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDestination(t *testing.T) {
	jid, kind, err := service.ParseDestination("120363025246125486@g.us")
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if kind != "group" || jid.Server != "g.us" || jid.User != "120363025246125486" {
		t.Fatalf("unexpected group jid %v (%s)", jid, kind)
	}

	jid, kind, err = service.ParseDestination("0812-3456-7890")
	if err != nil {
		t.Fatalf("personal: %v", err)
	}
	if kind != "personal" || jid.User != "6281234567890" || jid.Server != "s.whatsapp.net" {
		t.Fatalf("unexpected personal jid %v (%s)", jid, kind)
	}

	if _, _, err := service.ParseDestination("abc"); err == nil {
		t.Fatal("expected error for invalid destination")
	}
}
