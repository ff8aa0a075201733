package message

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"unicode"
)

// noneToken is the single token produced for absent content.
const noneToken = "None"

type contentKind int

const (
	kindNone contentKind = iota
	kindText
	kindStrings
	kindSequence
	kindSet
	kindMapping
	kindValue
)

// Content is the closed set of inputs a Message can be built from.
//
// The zero value is equivalent to None().
type Content struct {
	kind    contentKind
	text    string
	strs    []string
	items   []any
	entries []entry
	value   any
}

// entry is one key/value pair of mapping content. Keys keep their original
// type so distinct keys with the same string form both survive.
type entry struct {
	key   any
	value any
}

// None describes absent content.
func None() Content {
	return Content{kind: kindNone}
}

// Text describes free-form text. Tokens are whitespace runs split apart and the
// original line layout is kept for AsString.
func Text(text string) Content {
	return Content{kind: kindText, text: text}
}

// Strings describes an ordered collection of ready-made tokens.
func Strings(items ...string) Content {
	return Content{kind: kindStrings, strs: slices.Clone(items)}
}

// Sequence describes an ordered collection; every element becomes one token.
func Sequence(items ...any) Content {
	return Content{kind: kindSequence, items: slices.Clone(items)}
}

// Set describes an unordered collection. Tokens are ordered by their string form.
func Set(items ...any) Content {
	return Content{kind: kindSet, items: slices.Clone(items)}
}

// Mapping describes key/value content rendered as {k: v, ...} with sorted keys.
func Mapping(mapping map[string]any) Content {
	entries := make([]entry, 0, len(mapping))
	for key, value := range mapping {
		entries = append(entries, entry{key: key, value: value})
	}

	return Content{kind: kindMapping, entries: entries}
}

// Value describes any other object; its string form is split on whitespace.
func Value(value any) Content {
	if value == nil {
		return None()
	}

	return Content{kind: kindValue, value: value}
}

// ContentOf classifies a raw value into one of the content variants.
func ContentOf(value any) Content {
	switch typed := value.(type) {
	case nil:
		return None()
	case Content:
		return typed
	case string:
		return Text(typed)
	case []byte:
		return Text(string(typed))
	case []string:
		return Strings(typed...)
	case []any:
		return Sequence(typed...)
	case map[string]any:
		return Mapping(typed)
	case *Message:
		if typed == nil {
			return None()
		}
		return typed.Content()
	case Reply:
		if typed.Message == nil {
			return None()
		}
		return typed.Content()
	case fmt.Stringer, error:
		return Value(value)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return Sequence(items...)
	case reflect.Map:
		if rv.Type().Elem() == reflect.TypeFor[struct{}]() {
			keys := make([]any, 0, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				keys = append(keys, iter.Key().Interface())
			}
			return Set(keys...)
		}

		entries := make([]entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, entry{key: iter.Key().Interface(), value: iter.Value().Interface()})
		}
		return Content{kind: kindMapping, entries: entries}
	}

	return Value(value)
}

// tokens normalizes the content into its canonical token sequence.
func (c Content) tokens() ([]string, error) {
	switch c.kind {
	case kindNone:
		return []string{noneToken}, nil
	case kindText:
		return fields(c.text), nil
	case kindStrings:
		if c.strs == nil {
			return []string{}, nil
		}
		return slices.Clone(c.strs), nil
	case kindSequence:
		return renderAll(c.items)
	case kindSet:
		out, err := renderAll(c.items)
		if err != nil {
			return nil, err
		}
		slices.Sort(out)
		return out, nil
	case kindMapping:
		text, err := renderMapping(c.entries)
		if err != nil {
			return nil, err
		}
		return fields(text), nil
	case kindValue:
		text, err := renderValue(c.value)
		if err != nil {
			return nil, err
		}
		return fields(text), nil
	default:
		return nil, &ConversionError{Type: "message.Content", Detail: fmt.Sprintf("unknown content kind %d", c.kind)}
	}
}

// fields splits on runs of separator runes and never returns nil.
func fields(text string) []string {
	out := strings.FieldsFunc(text, isSeparator)
	if out == nil {
		return []string{}
	}

	return out
}

// isSeparator reports Unicode whitespace plus the ASCII information
// separators U+001C to U+001F.
func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}
