package i18n

import (
	"testing"
	"testing/fstest"
)

func loadBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return b
}

func TestLocalizerHeaders(t *testing.T) {
	b := loadBundle(t)
	tests := []struct {
		locale string
		key    string
		want   string
	}{
		{locale: "en-US", key: "headers.die", want: "Die"},
		{locale: "en-US", key: "headers.leastRolled", want: "Least Rolled"},
		{locale: "de-DE", key: "headers.totalRolls", want: "Würfe gesamt"},
		{locale: "es-ES", key: "headers.median", want: "Mediana"},
	}
	for _, tt := range tests {
		t.Run(tt.locale+"/"+tt.key, func(t *testing.T) {
			if got := b.Localizer(tt.locale).T(tt.key); got != tt.want {
				t.Fatalf("T(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLocalizerFormats(t *testing.T) {
	b := loadBundle(t)
	if got := b.Localizer("en-US").Tf("die.label", 20); got != "d20" {
		t.Fatalf("expected d20, got %q", got)
	}
	if got := b.Localizer("de-DE").Tf("die.label", 20); got != "W20" {
		t.Fatalf("expected W20, got %q", got)
	}
	if got := b.Localizer("en-US").Tf("errors.noDie", "amy", 8); got != "amy has not rolled a d8" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestLocalizerFallsBackToBase(t *testing.T) {
	b := loadBundle(t)
	es := b.Localizer("es-ES")
	if es.Locale() != "es-ES" {
		t.Fatalf("expected es-ES, got %s", es.Locale())
	}
	if got := es.Tf("die.label", 6); got != "d6" {
		t.Fatalf("expected base label d6, got %q", got)
	}
	if got := es.T("overview.rolls"); got != "Rolls" {
		t.Fatalf("expected base message, got %q", got)
	}
	for _, locale := range []string{"", "xx-nope", "tlh"} {
		if got := b.Localizer(locale).Locale(); got != BaseLocale {
			t.Fatalf("Localizer(%q) = %s, want %s", locale, got, BaseLocale)
		}
	}
	if got := b.Localizer("en-US").T("missing.key"); got != "missing.key" {
		t.Fatalf("expected key echo, got %q", got)
	}
}

func TestLocalesBaseFirst(t *testing.T) {
	locales := loadBundle(t).Locales()
	if len(locales) != 3 || locales[0] != BaseLocale {
		t.Fatalf("unexpected locales: %v", locales)
	}
}

func TestLoadFromFSRequiresBase(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/de-DE.toml": {Data: []byte("locale = \"de-DE\"\n[messages]\n\"headers.die\" = \"Würfel\"\n")},
	}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatalf("expected missing base locale error")
	}
	fsys["locales/bad.toml"] = &fstest.MapFile{Data: []byte("[messages]\n")}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatalf("expected missing locale error")
	}
}
