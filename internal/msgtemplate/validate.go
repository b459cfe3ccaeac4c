package msgtemplate

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	braceSpanPattern = regexp.MustCompile(`\{[^{}]*\}`)
	validPlaceholder = regexp.MustCompile(`^\{\w+\}$`)
)

type ValidationResult struct {
	Valid           bool     `json:"valid"`
	Errors          []string `json:"errors"`
	Warnings        []string `json:"warnings"`
	MissingRequired []string `json:"missingRequired"`
}

// Validate checks text against the placeholder rules of typ. Warnings never
// make a template invalid.
func (e *Engine) Validate(typ Type, text string) *ValidationResult {
	r := &ValidationResult{
		Errors:          []string{},
		Warnings:        []string{},
		MissingRequired: []string{},
	}
	d, ok := e.defs[typ]
	if !ok {
		r.Errors = append(r.Errors, fmt.Sprintf("نوع القالب غير معروف: %s", typ))
		return r
	}

	for _, span := range braceSpanPattern.FindAllString(text, -1) {
		if !validPlaceholder.MatchString(span) {
			r.Errors = append(r.Errors, fmt.Sprintf("صيغة متغير غير صحيحة: %s", span))
		}
	}
	if hasUnclosedBrace(text) {
		r.Errors = append(r.Errors, "يوجد قوس متغير غير مغلق")
	}

	var found []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !slices.Contains(found, m[1]) {
			found = append(found, m[1])
		}
	}
	for _, req := range d.RequiredVariables {
		if !slices.Contains(found, req) {
			r.Errors = append(r.Errors, fmt.Sprintf("المتغير المطلوب مفقود: {%s}", req))
			r.MissingRequired = append(r.MissingRequired, req)
		}
	}
	for _, key := range found {
		if !d.hasVariable(key) {
			r.Warnings = append(r.Warnings, fmt.Sprintf("متغير غير معروف: {%s}", key))
		}
	}

	r.Valid = len(r.Errors) == 0
	return r
}

// hasUnclosedBrace reports an opening brace that is not closed before the
// next opening brace or the end of text. Such a brace is never part of a span
// already reported as invalid syntax.
func hasUnclosedBrace(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		rest := text[i+1:]
		closeAt := strings.IndexByte(rest, '}')
		if closeAt < 0 {
			return true
		}
		if openAt := strings.IndexByte(rest, '{'); openAt >= 0 && openAt < closeAt {
			return true
		}
		i += closeAt + 1
	}
	return false
}
