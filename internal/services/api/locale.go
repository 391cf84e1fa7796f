package api

import (
	"net/http"
	"strings"

	i18ncatalog "github.com/louisbranch/ontogenic.space/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
)

const (
	// langParam is the query parameter used to select a language.
	langParam = "lang"
	// langCookieName stores the client's language preference.
	langCookieName = "os_lang"
)

var supportedLocales, localeMatcher = buildLocaleMatcher()

func buildLocaleMatcher() ([]string, language.Matcher) {
	locales := i18ncatalog.Default().Locales()
	kept := make([]string, 0, len(locales))
	tags := make([]language.Tag, 0, len(locales))
	for _, locale := range locales {
		tag, err := language.Parse(locale)
		if err != nil {
			continue
		}
		kept = append(kept, locale)
		tags = append(tags, tag)
	}
	return kept, language.NewMatcher(tags)
}

// resolveLocale determines the response locale for a request: explicit
// query parameter first, then cookie, then Accept-Language, falling
// back to the catalog's base locale.
func resolveLocale(r *http.Request) string {
	if r == nil {
		return i18ncatalog.BaseLocale
	}

	if value := strings.TrimSpace(r.URL.Query().Get(langParam)); value != "" {
		if locale, ok := matchLocale(value); ok {
			return locale
		}
	}

	if cookie, err := r.Cookie(langCookieName); err == nil {
		if locale, ok := matchLocale(cookie.Value); ok {
			return locale
		}
	}

	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil {
			if locale, ok := matchLocaleTags(tags); ok {
				return locale
			}
		}
	}

	return i18ncatalog.BaseLocale
}

func matchLocale(value string) (string, bool) {
	tag, err := language.Parse(strings.TrimSpace(value))
	if err != nil {
		return "", false
	}
	return matchLocaleTags([]language.Tag{tag})
}

func matchLocaleTags(tags []language.Tag) (string, bool) {
	_, index, confidence := localeMatcher.Match(tags...)
	if confidence == language.No {
		return "", false
	}
	return supportedLocales[index], true
}
