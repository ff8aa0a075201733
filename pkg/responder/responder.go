// Package responder turns one inbound message into a buffer of replies.
package responder

import (
	"chatcore/pkg/bus"
	"chatcore/pkg/message"
)

// Func produces the replies for one inbound message.
type Func func(*message.Message) *bus.ReplyBuffer

// Inspect replies with one unit per normalized view of msg: the text as
// received, its tokens, the sanitized tokens, the lowered tokens and a summary.
func Inspect(msg *message.Message) *bus.ReplyBuffer {
	replies := bus.NewReplyBuffer()
	if msg == nil {
		return replies
	}

	replies.Put(msg.AsString(false))
	replies.Put(labelled("tokens:", msg.Tokens()))
	replies.Put(labelled("sanitized:", msg.SanitizedTokens(true)))
	replies.Put(labelled("lowered:", msg.LoweredTokens()))
	replies.Put(map[string]any{
		"author": msg.Author(),
		"tokens": len(msg.Tokens()),
	})

	return replies
}

// Echo replies with the message text exactly as received.
func Echo(msg *message.Message) *bus.ReplyBuffer {
	if msg == nil {
		return bus.NewReplyBuffer()
	}

	return bus.NewReplyBuffer(msg)
}

func labelled(label string, tokens []string) []string {
	return append([]string{label}, tokens...)
}
