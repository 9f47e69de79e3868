package challenge

import (
	"strings"

	"golang.org/x/text/language"
)

var promptTags = []language.Tag{
	language.English,
	language.Hindi,
}

var promptText = []string{
	"Enter the 6-digit code sent to your email.",
	"अपने ईमेल पर भेजा गया 6 अंकों का कोड दर्ज करें।",
}

// Prompts selects the prompt text shown to the user for a requested locale.
type Prompts struct {
	matcher  language.Matcher
	fallback int
}

// NewPrompts returns a Prompts that falls back to defaultLocale (or English) when the
// requested locale is missing or unsupported.
func NewPrompts(defaultLocale string) *Prompts {
	p := &Prompts{matcher: language.NewMatcher(promptTags)}
	p.fallback = p.index(defaultLocale, 0)
	return p
}

// For returns the prompt for locale, which may be a single tag ("hi-IN") or an
// Accept-Language list ("hi-IN,en;q=0.8").
func (p *Prompts) For(locale string) string {
	if p == nil {
		return promptText[0]
	}
	return promptText[p.index(locale, p.fallback)]
}

func (p *Prompts) index(locale string, fallback int) int {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := p.matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return idx
}
