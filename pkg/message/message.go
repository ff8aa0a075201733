// Package message normalizes inbound content into a canonical token sequence
// and exposes derived views of it.
package message

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"
)

// Anonymous is the author of a message built without one.
const Anonymous = "anonymous"

// Attribute keys that overwrite a core field instead of being stored.
const (
	AttrAuthor  = "author"
	AttrClient  = "client"
	AttrCreated = "created"
)

// Role distinguishes inbound messages from outbound replies.
type Role int

const (
	RoleMessage Role = iota
	RoleReply
)

func (r Role) String() string {
	switch r {
	case RoleReply:
		return "Reply"
	default:
		return "Message"
	}
}

// Attributes are extra named fields attached to a message at construction.
type Attributes map[string]any

// Message is the normalized form of one piece of conversational content.
//
// A Message never changes after New returns, so it can be read from multiple
// goroutines without locking.
type Message struct {
	role    Role
	author  string
	created time.Time
	client  any

	tokens    []string
	format    []string
	hasFormat bool
	attrs     Attributes
}

type options struct {
	author  string
	client  any
	created time.Time
	attrs   Attributes
}

// Option configures message construction.
type Option func(*options)

// WithAuthor sets the author identifier.
func WithAuthor(author string) Option {
	return func(o *options) {
		if author = strings.TrimSpace(author); author != "" {
			o.author = author
		}
	}
}

// WithClient attaches the originating platform context. The message does not own it.
func WithClient(client any) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithCreated overrides the construction timestamp.
func WithCreated(created time.Time) Option {
	return func(o *options) {
		if !created.IsZero() {
			o.created = created
		}
	}
}

// WithAttribute attaches one extra named field.
func WithAttribute(key string, value any) Option {
	return func(o *options) {
		if o.attrs == nil {
			o.attrs = make(Attributes)
		}
		o.attrs[key] = value
	}
}

// WithAttributes attaches extra named fields. They are applied after the core
// fields, so the keys author, client and created replace those fields; callers
// that do not want that must avoid the reserved names.
func WithAttributes(attrs Attributes) Option {
	return func(o *options) {
		if len(attrs) == 0 {
			return
		}
		if o.attrs == nil {
			o.attrs = make(Attributes, len(attrs))
		}
		maps.Copy(o.attrs, attrs)
	}
}

// New normalizes content into a Message. It fails with a *ConversionError when
// the content has no textual representation.
func New(content Content, opts ...Option) (*Message, error) {
	return build(RoleMessage, content, opts)
}

func build(role Role, content Content, opts []Option) (*Message, error) {
	cfg := options{author: Anonymous, created: time.Now()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	tokens, err := content.tokens()
	if err != nil {
		return nil, err
	}

	msg := &Message{
		role:    role,
		author:  cfg.author,
		created: cfg.created,
		client:  cfg.client,
		tokens:  tokens,
	}
	if content.kind == kindText {
		msg.format, msg.hasFormat = splitLines(content.text)
	}
	msg.applyAttributes(cfg.attrs)

	return msg, nil
}

func (m *Message) applyAttributes(attrs Attributes) {
	for key, value := range attrs {
		switch key {
		case AttrAuthor:
			if author, ok := value.(string); ok {
				// Same rule as WithAuthor: blank values keep the current author.
				if author = strings.TrimSpace(author); author != "" {
					m.author = author
				}
				continue
			}
		case AttrClient:
			m.client = value
			continue
		case AttrCreated:
			if created, ok := value.(time.Time); ok {
				if !created.IsZero() {
					m.created = created
				}
				continue
			}
		}

		if m.attrs == nil {
			m.attrs = make(Attributes, len(attrs))
		}
		m.attrs[key] = value
	}
}

// Role reports whether m is an inbound message or a reply.
func (m *Message) Role() Role { return m.role }

// Author returns the author identifier.
func (m *Message) Author() string { return m.author }

// Created returns the construction timestamp.
func (m *Message) Created() time.Time { return m.created }

// Client returns the originating platform context, or nil.
func (m *Message) Client() any { return m.client }

// Attr returns an extra attribute attached at construction.
func (m *Message) Attr(key string) (any, bool) {
	value, ok := m.attrs[key]
	return value, ok
}

// Attributes returns a copy of the extra attributes.
func (m *Message) Attributes() Attributes {
	if len(m.attrs) == 0 {
		return nil
	}

	return maps.Clone(m.attrs)
}

// Tokens returns the canonical token sequence.
func (m *Message) Tokens() []string {
	return slices.Clone(m.tokens)
}

// ContentWithFormat returns the original text split into lines with their
// terminators. It reports false when the message was not built from text.
func (m *Message) ContentWithFormat() ([]string, bool) {
	if !m.hasFormat {
		return nil, false
	}

	return slices.Clone(m.format), true
}

// SanitizedTokens strips every character that is not a word character or
// whitespace from each token, lowering case unless preserveCase is set. Tokens
// may become empty but are never removed.
func (m *Message) SanitizedTokens(preserveCase bool) []string {
	out := make([]string, len(m.tokens))
	for i, token := range m.tokens {
		sanitized := sanitize(token)
		if !preserveCase {
			sanitized = strings.ToLower(sanitized)
		}
		out[i] = sanitized
	}

	return out
}

// LoweredTokens returns every token in lower case.
func (m *Message) LoweredTokens() []string {
	out := make([]string, len(m.tokens))
	for i, token := range m.tokens {
		out[i] = strings.ToLower(token)
	}

	return out
}

// AsString joins the content back into one string. Text content keeps its
// original line breaks unless sanitized is set.
func (m *Message) AsString(sanitized bool) string {
	if sanitized {
		return strings.Join(m.SanitizedTokens(false), " ")
	}
	if m.hasFormat {
		return strings.Join(m.format, "")
	}

	return strings.Join(m.tokens, " ")
}

// AsList returns the sanitized tokens or a copy of the tokens.
func (m *Message) AsList(sanitized bool) []string {
	if sanitized {
		return m.SanitizedTokens(false)
	}

	return m.Tokens()
}

// Content returns content that rebuilds an equivalent message.
func (m *Message) Content() Content {
	if m.hasFormat {
		return Text(strings.Join(m.format, ""))
	}

	return Strings(m.tokens...)
}

func (m *Message) String() string {
	return fmt.Sprintf("%s(author=%s, created=%s, content=%q)",
		m.role, m.author, m.created.Format(time.RFC3339), m.tokens)
}

// LogValue reports author, role and token count instead of the full content.
func (m *Message) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("author", m.author),
		slog.String("role", m.role.String()),
		slog.Int("tokens", len(m.tokens)),
	)
}
