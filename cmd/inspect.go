package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"chatcore/pkg/message"
	"chatcore/pkg/responder"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

var (
	promptText     string
	inspectPlain   bool
	inspectMetrics bool
)

var (
	replyTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("44")).
			Padding(0, 1)
	replyBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("44")).
			Padding(0, 1)
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [text]",
	Short: "Normalize one text and print every view of it",
	Long:  "Builds a message from the given text and prints each reply the inspector produces: the text as received, its tokens, sanitized and lowered tokens, and a summary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		text := resolvePrompt(args)
		if text == "" {
			return errors.New("nothing to inspect: pass text as arguments or with --prompt")
		}

		cfg := activeConfig()
		msg, err := message.New(message.Text(text), message.WithAuthor(cfg.Chat.Author))
		if err != nil {
			return fmt.Errorf("normalize input: %w", err)
		}
		slog.Default().With("component", "cmd.inspect").Debug("Inspecting message", "message", msg)

		replies, err := responder.Inspect(msg).Drain()
		printReplies(cmd.OutOrStdout(), replies, inspectPlain)
		if inspectMetrics {
			if metricsErr := printMetrics(cmd.OutOrStdout(), prometheus.DefaultGatherer); metricsErr != nil {
				return errors.Join(err, metricsErr)
			}
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&promptText, "prompt", "p", "", "text to inspect")
	inspectCmd.Flags().BoolVar(&inspectPlain, "plain", false, "print replies without styling")
	inspectCmd.Flags().BoolVar(&inspectMetrics, "metrics", false, "print reply buffer metrics after the replies")
}

func resolvePrompt(args []string) string {
	if value := strings.TrimSpace(promptText); value != "" {
		return value
	}

	if len(args) == 0 {
		return ""
	}

	return strings.TrimSpace(strings.Join(args, " "))
}

func printReplies(w io.Writer, replies []message.Reply, plain bool) {
	for i, reply := range replies {
		if plain {
			printReply(w, reply)
			continue
		}

		card := lipgloss.JoinVertical(lipgloss.Left,
			replyTitleStyle.Render(fmt.Sprintf("REPLY %d", i+1)),
			replyBoxStyle.Render(strings.TrimSpace(reply.AsString(false))),
		)
		fmt.Fprintln(w, card)
	}
}

func printReply(w io.Writer, reply message.Reply) {
	lines := replyLines(reply.AsString(false))
	for _, line := range lines {
		fmt.Fprintf(w, "» %s\n", line)
	}
	if len(lines) > 0 {
		fmt.Fprintln(w)
	}
}

func replyLines(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	return strings.Split(trimmed, "\n")
}

// printMetrics writes the chatcore metric families in the Prometheus text format.
func printMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), "chatcore_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	return nil
}
