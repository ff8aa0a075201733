package message

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// render produces the string form of one element.
func render(value any) (string, error) {
	switch typed := value.(type) {
	case nil:
		return noneToken, nil
	case string:
		return typed, nil
	case error:
		return callString(value, typed.Error)
	case fmt.Stringer:
		return callString(value, typed.String)
	default:
		return fmt.Sprintf("%v", value), nil
	}
}

// renderValue is render with field names kept for structs.
func renderValue(value any) (string, error) {
	switch value.(type) {
	case nil, string, error, fmt.Stringer:
		return render(value)
	default:
		return fmt.Sprintf("%+v", value), nil
	}
}

// callString runs a String/Error method, turning a panic into a ConversionError.
func callString(value any, fn func() string) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			text = ""
			err = conversionError(value, recovered)
		}
	}()

	return fn(), nil
}

func renderAll(items []any) ([]string, error) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		text, err := render(item)
		if err != nil {
			return nil, err
		}
		out = append(out, text)
	}

	return out, nil
}

// renderMapping renders entries as {k: v, ...} ordered by key text, then key
// type, then value text.
func renderMapping(entries []entry) (string, error) {
	type renderedEntry struct {
		key, keyType, value string
	}

	rendered := make([]renderedEntry, 0, len(entries))
	for _, item := range entries {
		key, err := render(item.key)
		if err != nil {
			return "", err
		}
		value, err := render(item.value)
		if err != nil {
			return "", err
		}
		rendered = append(rendered, renderedEntry{key: key, keyType: fmt.Sprintf("%T", item.key), value: value})
	}
	slices.SortFunc(rendered, func(a, b renderedEntry) int {
		return cmp.Or(
			cmp.Compare(a.key, b.key),
			cmp.Compare(a.keyType, b.keyType),
			cmp.Compare(a.value, b.value),
		)
	})

	var b strings.Builder
	b.WriteByte('{')
	for i, item := range rendered {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(item.key)
		b.WriteString(": ")
		b.WriteString(item.value)
	}
	b.WriteByte('}')

	return b.String(), nil
}

// splitLines splits text into lines that keep their terminators, so joining the
// result yields the input again. It reports false for text that is not UTF-8.
func splitLines(text string) ([]string, bool) {
	if !utf8.ValidString(text) {
		return nil, false
	}

	lines := []string{}
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if !isLineBreak(r) {
			continue
		}
		if r == '\r' && i < len(text) && text[i] == '\n' {
			i++
		}
		lines = append(lines, text[start:i])
		start = i
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}

	return lines, true
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	default:
		return false
	}
}

// sanitize drops every rune that is neither a word rune nor whitespace.
func sanitize(token string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, token)
}
