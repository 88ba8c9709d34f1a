package render

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	displayMath = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)
	inlineMath  = regexp.MustCompile(`\$([^\s$](?:[^$\n]*?[^\s$])?)\$`)
)

// MarkMath wraps $$...$$ and $...$ spans found in text nodes in spans that a
// client-side formula renderer picks up by class. Tags, attribute values and
// anything inside pre or code are copied through untouched. A formula split
// by inline markup is left unmarked.
func MarkMath(markup string) string {
	if !strings.Contains(markup, "$") {
		return markup
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(markup))
	verbatim := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return b.String()
		}
		raw := string(z.Raw())
		switch tt {
		case html.TextToken:
			if verbatim == 0 {
				raw = markMathText(raw)
			}
		case html.StartTagToken:
			if isVerbatim(z) {
				verbatim++
			}
		case html.EndTagToken:
			if isVerbatim(z) && verbatim > 0 {
				verbatim--
			}
		}
		b.WriteString(raw)
	}
}

func isVerbatim(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	return string(name) == "pre" || string(name) == "code"
}

func markMathText(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	s = displayMath.ReplaceAllString(s, `<span class="math display">$1</span>`)
	return inlineMath.ReplaceAllString(s, `<span class="math inline">$1</span>`)
}
