// Package render turns model replies into markup that is safe to insert into
// a page.
//
// The pipeline is fixed: markdown conversion, then optional math marking,
// then sanitization. Nothing leaves Render without passing the sanitizer.
package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"log"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var classPattern = regexp.MustCompile(`^(language-[\w+#.-]+|math inline|math display)$`)

// Renderer converts markdown replies into sanitized HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	math   bool
	logger *log.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMath toggles marking of $...$ and $$...$$ spans for client-side
// formula rendering. Enabled by default.
func WithMath(enabled bool) Option {
	return func(r *Renderer) { r.math = enabled }
}

// WithLogger sets the logger used for conversion failures.
func WithLogger(logger *log.Logger) Option {
	return func(r *Renderer) { r.logger = logger }
}

// New creates a renderer with GitHub flavoured markdown and a UGC sanitizer
// policy.
func New(opts ...Option) *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(classPattern).OnElements("code", "span", "div")

	r := &Renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: policy,
		math:   true,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render converts raw into safe markup. It never fails: when conversion
// breaks, the raw text is shown escaped instead of being lost.
func (r *Renderer) Render(raw string) string {
	converted, err := r.convert(raw)
	if err != nil {
		r.logger.Printf("markdown conversion failed, falling back to escaped text: %v", err)
		return r.Escape(raw)
	}
	if r.math {
		converted = r.markMath(converted)
	}
	return r.Sanitize(converted)
}

// Escape renders raw as preformatted, escaped text.
func (r *Renderer) Escape(raw string) string {
	return r.Sanitize("<pre>" + html.EscapeString(raw) + "</pre>")
}

// Sanitize strips executable and unsafe constructs. It is idempotent.
func (r *Renderer) Sanitize(markup string) string {
	return r.policy.Sanitize(markup)
}

func (r *Renderer) convert(raw string) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("markdown conversion panicked: %v", p)
		}
	}()
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(raw), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// markMath is best effort; on failure the unmarked markup is kept.
func (r *Renderer) markMath(markup string) (out string) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Printf("math post-processing failed: %v", p)
			out = markup
		}
	}()
	return MarkMath(markup)
}
