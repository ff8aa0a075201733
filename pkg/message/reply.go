package message

// Reply is a normalized message produced as an outbound unit. Commands return
// Reply values; everything else about it is a Message.
//
// The zero Reply, returned next to errors such as an empty buffer, carries no
// Message. Only IsZero may be called on it; every other method panics.
type Reply struct {
	*Message
}

// NewReply normalizes content into a Reply.
func NewReply(content Content, opts ...Option) (Reply, error) {
	msg, err := build(RoleReply, content, opts)
	if err != nil {
		return Reply{}, err
	}

	return Reply{Message: msg}, nil
}

// AsReply returns value unchanged when it already is a Reply and otherwise
// builds a new Reply whose content is value.
func AsReply(value any, opts ...Option) (Reply, error) {
	switch typed := value.(type) {
	case Reply:
		if typed.Message != nil {
			return typed, nil
		}
		return NewReply(None(), opts...)
	case *Reply:
		if typed != nil && typed.Message != nil {
			return *typed, nil
		}
		return NewReply(None(), opts...)
	}

	return NewReply(ContentOf(value), opts...)
}

// IsZero reports whether r carries no message.
func (r Reply) IsZero() bool {
	return r.Message == nil
}
