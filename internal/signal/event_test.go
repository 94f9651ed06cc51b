package signal

import (
	"strings"
	"testing"
)

func TestParseKeyDown(t *testing.T) {
	ev, err := Parse([]byte(`{"type":"keydown","key":"I","ctrl":true,"shift":true}`))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != KindKeyDown {
		t.Fatalf("expected keydown, got %s", ev.Kind)
	}
	if !ev.Modifier() || !ev.Shift {
		t.Fatal("expected ctrl+shift modifiers")
	}
	if ev.KeyLower() != "i" {
		t.Fatalf("expected lowercased key i, got %q", ev.KeyLower())
	}
}

func TestParseRejectsUnknownKind(t *testing.T) {
	_, err := Parse([]byte(`{"type":"mousewheel"}`))
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if !strings.Contains(err.Error(), "mousewheel") {
		t.Fatalf("expected kind in error, got %v", err)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"type":`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestMetaCountsAsModifier(t *testing.T) {
	ev := Event{Kind: KindKeyDown, Key: "p", Meta: true}
	if !ev.Modifier() {
		t.Fatal("expected meta to count as modifier")
	}
}

func TestControlKinds(t *testing.T) {
	for _, k := range []Kind{KindActivity, KindAcknowledge, KindFullscreenReturn, KindSubmit} {
		if !k.IsControl() {
			t.Errorf("expected %s to be a control kind", k)
		}
	}
	for _, k := range []Kind{KindBlur, KindCopy, KindKeyDown} {
		if k.IsControl() {
			t.Errorf("expected %s to be a platform signal", k)
		}
	}
}

func TestEventString(t *testing.T) {
	ev := Event{Kind: KindKeyDown, Key: "i", Ctrl: true, Shift: true}
	if got := ev.String(); got != "keydown ctrl+shift+i" {
		t.Fatalf("unexpected string %q", got)
	}
	if got := (Event{Kind: KindVisibility, Hidden: true}).String(); got != "visibilitychange hidden" {
		t.Fatalf("unexpected string %q", got)
	}
}
