package chat

import (
	"strings"
	"testing"
	"time"

	"chatcore/pkg/bus"
	"chatcore/pkg/message"
	"chatcore/pkg/responder"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

type brokenReply struct{}

func (brokenReply) String() string { panic("unprintable") }

func typeLine(m *model, line string) tea.Cmd {
	m.input.SetValue(line)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

// runCmd executes cmd and any commands it batches, returning their messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}

	var out []tea.Msg
	for _, inner := range batch {
		if inner != nil {
			out = append(out, runCmd(inner)...)
		}
	}
	return out
}

func TestSubmitBuildsMessageAndRendersReplies(t *testing.T) {
	var received *message.Message
	respond := func(msg *message.Message) *bus.ReplyBuffer {
		received = msg
		return responder.Echo(msg)
	}

	m := newModel(respond, "alice", time.Millisecond)
	cmd := typeLine(m, "  Hello there  ")
	require.NotNil(t, cmd)
	require.True(t, m.isLoading)
	require.Empty(t, m.input.Value())
	require.Len(t, m.entries, 1)
	require.Equal(t, roleMessage, m.entries[0].role)

	var result tea.Msg
	for _, msg := range runCmd(cmd) {
		if _, ok := msg.(repliesMsg); ok {
			result = msg
		}
	}
	require.NotNil(t, result)
	require.NotNil(t, received)
	require.Equal(t, "alice", received.Author())
	require.Equal(t, []string{"Hello", "there"}, received.Tokens())

	m.Update(result)
	require.False(t, m.isLoading)
	require.Equal(t, 1, m.replies)
	require.Equal(t, chatEntry{role: roleReply, content: "Hello there"}, m.entries[1])
	require.Contains(t, m.View(), "[REPLY]")
}

func TestSubmitIgnoresBlankAndBusyInput(t *testing.T) {
	m := newModel(responder.Echo, "alice", time.Millisecond)

	if cmd := typeLine(m, "   "); cmd != nil {
		t.Fatal("expected blank input to be ignored")
	}

	m.isLoading = true
	if cmd := typeLine(m, "hello"); cmd != nil {
		t.Fatal("expected input to be ignored while waiting for replies")
	}
	if len(m.entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(m.entries))
	}
}

func TestSubmitExitCommandQuits(t *testing.T) {
	m := newModel(responder.Echo, "alice", time.Millisecond)

	cmd := typeLine(m, " :q ")
	require.NotNil(t, cmd)
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected exit command to quit")
	}
}

func TestRepliesWithErrorShowErrorCard(t *testing.T) {
	respond := func(*message.Message) *bus.ReplyBuffer {
		return bus.NewReplyBuffer("ok", brokenReply{})
	}
	msg, err := message.New(message.Text("hi"))
	require.NoError(t, err)

	m := newModel(respond, "alice", time.Millisecond)
	m.isLoading = true
	m.Update(collectRepliesCmd(respond, msg, time.Millisecond)())

	require.Equal(t, 1, m.replies)
	require.NotEmpty(t, m.lastErr)
	require.Equal(t, roleError, m.entries[len(m.entries)-1].role)
	require.True(t, strings.Contains(m.View(), "last message failed"))
}

func TestCollectRepliesWithoutResponder(t *testing.T) {
	result, ok := collectRepliesCmd(nil, nil, time.Millisecond)().(repliesMsg)
	require.True(t, ok)
	require.Error(t, result.err)
	require.Empty(t, result.replies)
}

func TestCollectRepliesWaitsForLateReplies(t *testing.T) {
	buffer := bus.NewReplyBuffer("first")
	go func() {
		time.Sleep(5 * time.Millisecond)
		buffer.Put("second")
	}()

	replies, err := collectReplies(buffer, time.Second)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	require.Equal(t, "second", replies[1].AsString(false))
}

func TestIsExitCommand(t *testing.T) {
	for _, input := range []string{"exit", "/exit", "QUIT", " :q "} {
		if !isExitCommand(input) {
			t.Fatalf("isExitCommand(%q) = false, want true", input)
		}
	}
	if isExitCommand("exit now") {
		t.Fatal("isExitCommand(\"exit now\") = true, want false")
	}
}
