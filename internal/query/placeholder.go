// Package query holds the dialect-neutral pieces of generated SQL: the
// {{name}} / {{name::type}} placeholder template, bound parameter maps and a
// small SELECT builder that analytics queries are assembled from.
package query

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)(?:::([A-Za-z0-9_]+))?\s*\}\}`)

// Placeholder is one {{name}} or {{name::type}} occurrence in template text.
type Placeholder struct {
	Name  string
	Type  string
	Start int
	End   int
}

// MissingParamError reports a placeholder that has no bound value.
type MissingParamError struct {
	Name string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("query: no value bound for placeholder %q", e.Name)
}

// P returns the untyped placeholder for name.
func P(name string) string {
	return "{{" + name + "}}"
}

// PT returns the placeholder for name carrying a type hint, e.g. {{websiteId::uuid}}.
func PT(name, typ string) string {
	if typ == "" {
		return P(name)
	}
	return "{{" + name + "::" + typ + "}}"
}

// Placeholders lists every placeholder in text, left to right.
func Placeholders(text string) []Placeholder {
	matches := placeholderPattern.FindAllStringSubmatchIndex(text, -1)
	out := make([]Placeholder, 0, len(matches))
	for _, m := range matches {
		ph := Placeholder{
			Name:  text[m[2]:m[3]],
			Start: m[0],
			End:   m[1],
		}
		if m[4] >= 0 {
			ph.Type = text[m[4]:m[5]]
		}
		out = append(out, ph)
	}
	return out
}

// Expand rewrites every placeholder in text with the string returned by fn.
// fn receives the placeholder and its bound value; a placeholder without a
// value in params yields a *MissingParamError.
func Expand(text string, params Params, fn func(ph Placeholder, value any) (string, error)) (string, error) {
	phs := Placeholders(text)
	if len(phs) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, ph := range phs {
		value, ok := params[ph.Name]
		if !ok {
			return "", &MissingParamError{Name: ph.Name}
		}
		repl, err := fn(ph, value)
		if err != nil {
			return "", err
		}
		b.WriteString(text[last:ph.Start])
		b.WriteString(repl)
		last = ph.End
	}
	b.WriteString(text[last:])
	return b.String(), nil
}
