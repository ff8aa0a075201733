package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chatcore/pkg/bus"
	"chatcore/pkg/config"
	"chatcore/pkg/message"
	"chatcore/pkg/responder"
	"chatcore/pkg/ui/chat"

	"github.com/spf13/cobra"
)

var (
	chatPlain     bool
	chatResponder string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long:  "Turns each line you type into a message and shows the replies the selected responder produces for it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		respond, err := responderByName(chatResponder)
		if err != nil {
			return err
		}

		cfg := activeConfig()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := slog.Default().With("component", "cmd.chat")
		log.Debug("Chat started", "responder", chatResponder, "plain", chatPlain, "reply_timeout", cfg.Chat.ReplyTimeout())

		if chatPlain {
			return runPlainChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), respond, cfg.Chat)
		}

		return chat.RunInteractive(ctx, respond, cfg.Chat.Author, cfg.Chat.ReplyTimeout())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "read lines from stdin instead of starting the terminal UI")
	chatCmd.Flags().StringVar(&chatResponder, "responder", "inspect", "reply producer: inspect or echo")
}

func responderByName(name string) (responder.Func, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "inspect":
		return responder.Inspect, nil
	case "echo":
		return responder.Echo, nil
	default:
		return nil, fmt.Errorf("unknown responder %q", name)
	}
}

// runPlainChat reads one message per line until EOF, an exit command or ctx
// ends, printing replies as they are received.
func runPlainChat(ctx context.Context, in io.Reader, out io.Writer, respond responder.Func, cfg config.ChatConfig) error {
	scanner := bufio.NewScanner(in)

	for ctx.Err() == nil {
		fmt.Fprint(out, "✍ ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		}

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if isExitCommand(line) {
			return nil
		}

		msg, err := message.New(message.Text(line), message.WithAuthor(cfg.Author))
		if err != nil {
			fmt.Fprintf(out, "message failed: %v\n", err)
			continue
		}

		streamReplies(ctx, out, respond(msg), cfg.ReplyTimeout())
	}

	return nil
}

// streamReplies prints each reply as it arrives and returns once the buffer
// has stayed empty for timeout.
func streamReplies(ctx context.Context, out io.Writer, replies *bus.ReplyBuffer, timeout time.Duration) {
	if replies == nil {
		return
	}

	for {
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		reply, err := replies.Wait(waitCtx)
		cancel()

		if errors.Is(err, bus.ErrEmpty) {
			return
		}
		if err != nil {
			fmt.Fprintf(out, "reply dropped: %v\n", err)
			continue
		}

		printReply(out, reply)
	}
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "/exit", "quit", ":q":
		return true
	default:
		return false
	}
}
