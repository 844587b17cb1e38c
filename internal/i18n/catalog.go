// Package i18n loads the embedded message catalogs.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// BaseLocale backs every key missing from another locale.
const BaseLocale = "en-US"

//go:embed locales/*.toml
var embeddedFS embed.FS

type localeFile struct {
	Locale   string            `toml:"locale"`
	Messages map[string]string `toml:"messages"`
}

// Bundle holds all locales and a catalog where each locale is complete
// through base-locale fallback.
type Bundle struct {
	tags     []language.Tag
	matcher  language.Matcher
	catalog  *catalog.Builder
	messages map[string]map[string]string
}

// LoadEmbedded loads the locales shipped with the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedFS)
}

// LoadFromFS loads every locales/*.toml file of fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.toml")
	if err != nil {
		return nil, fmt.Errorf("failed to glob locales: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale files found")
	}
	sort.Strings(paths)

	files := map[string]map[string]string{}
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		var lf localeFile
		if _, err := toml.Decode(string(data), &lf); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		locale := strings.TrimSpace(lf.Locale)
		if locale == "" {
			return nil, fmt.Errorf("%s: locale is required", path)
		}
		if _, dup := files[locale]; dup {
			return nil, fmt.Errorf("%s: locale %q defined twice", path, locale)
		}
		files[locale] = lf.Messages
	}
	base, ok := files[BaseLocale]
	if !ok {
		return nil, fmt.Errorf("base locale %s is not defined", BaseLocale)
	}

	b := &Bundle{
		catalog:  catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale))),
		messages: map[string]map[string]string{},
	}
	locales := make([]string, 0, len(files))
	for locale := range files {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	// The base locale goes first so the matcher prefers it on ties.
	sort.SliceStable(locales, func(i, j int) bool { return locales[i] == BaseLocale })

	for _, locale := range locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("failed to parse locale %q: %w", locale, err)
		}
		merged := make(map[string]string, len(base))
		for k, v := range base {
			merged[k] = v
		}
		for k, v := range files[locale] {
			merged[strings.TrimSpace(k)] = v
		}
		for k, v := range merged {
			if err := b.catalog.SetString(tag, k, v); err != nil {
				return nil, fmt.Errorf("failed to register %s %q: %w", locale, k, err)
			}
		}
		b.tags = append(b.tags, tag)
		b.messages[tag.String()] = merged
	}
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

// Locales returns the supported locale identifiers, base locale first.
func (b *Bundle) Locales() []string {
	out := make([]string, len(b.tags))
	for i, t := range b.tags {
		out[i] = t.String()
	}
	return out
}

// Localizer returns a localizer for the closest supported locale.
// Empty or unknown locales resolve to BaseLocale.
func (b *Bundle) Localizer(locale string) *Localizer {
	tag := b.tags[0]
	if locale = strings.TrimSpace(locale); locale != "" {
		if requested, err := language.Parse(locale); err == nil {
			_, idx, conf := b.matcher.Match(requested)
			if conf != language.No {
				tag = b.tags[idx]
			}
		}
	}
	return &Localizer{
		tag:      tag,
		printer:  message.NewPrinter(tag, message.Catalog(b.catalog)),
		messages: b.messages[tag.String()],
	}
}

// Localizer translates message keys for one locale.
type Localizer struct {
	tag      language.Tag
	printer  *message.Printer
	messages map[string]string
}

// Locale returns the resolved locale identifier.
func (l *Localizer) Locale() string {
	return l.tag.String()
}

// T returns the message for key, or key itself when unknown.
func (l *Localizer) T(key string) string {
	if _, ok := l.messages[key]; !ok {
		return key
	}
	return l.printer.Sprintf(key)
}

// Tf formats the message for key with args.
func (l *Localizer) Tf(key string, args ...any) string {
	if _, ok := l.messages[key]; !ok {
		return fmt.Sprint(append([]any{key, ": "}, args...)...)
	}
	return l.printer.Sprintf(key, args...)
}
