package i18n

import (
	"strings"
	"testing"
)

func TestGetLocalized(t *testing.T) {
	if got := Get("zh", "chat_reset"); !strings.Contains(got, "重置") {
		t.Errorf("zh chat_reset = %q", got)
	}
	if got := Get("en", "chat_reset"); !strings.Contains(got, "reset") {
		t.Errorf("en chat_reset = %q", got)
	}
}

func TestSupportedLanguageWithoutCatalogFallsBack(t *testing.T) {
	// ru is selectable but has no catalog of its own.
	if !IsSupported("ru") {
		t.Fatal("ru should be supported")
	}
	if got, want := Get("ru", "welcome"), Get("en", "welcome"); got != want {
		t.Errorf("ru welcome = %q, want english fallback", got)
	}
}

func TestUnknownKeyFallsBackToEnglish(t *testing.T) {
	if got := Get("zh", "no_such_key"); !strings.Contains(got, "no_such_key") {
		t.Errorf("missing key produced %q", got)
	}
}

func TestGetAppliesArgs(t *testing.T) {
	got := Get("en", "params_set_success", "temperature", "0.8")
	if !strings.Contains(got, "temperature") || !strings.Contains(got, "0.8") {
		t.Errorf("formatted = %q", got)
	}
}

func TestIsSupported(t *testing.T) {
	for _, code := range Supported {
		if !IsSupported(code) {
			t.Errorf("IsSupported(%q) = false", code)
		}
	}
	if IsSupported("tlh") {
		t.Error("IsSupported(tlh) = true")
	}
}
