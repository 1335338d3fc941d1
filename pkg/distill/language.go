package distill

import "context"

// LangcodeNotSpecified is the language used when none is given.
const LangcodeNotSpecified = "und"

type languageKey struct{}

// ContextWithLanguage returns a context carrying the extraction language.
func ContextWithLanguage(ctx context.Context, langcode string) context.Context {
	return context.WithValue(ctx, languageKey{}, langcode)
}

// LanguageFromContext returns the extraction language a Distiller passed to
// its handlers, or LangcodeNotSpecified.
func LanguageFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(languageKey{}).(string); ok && lang != "" {
		return lang
	}
	return LangcodeNotSpecified
}
