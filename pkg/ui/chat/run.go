// Package chat is the interactive terminal view over a responder: each line
// typed becomes a message and each reply it produces is shown as a card.
package chat

import (
	"context"
	"fmt"
	"time"

	"chatcore/pkg/responder"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RunInteractive runs the chat view until the user quits or ctx ends. Replies
// are collected until the buffer stays empty for replyTimeout.
func RunInteractive(ctx context.Context, respond responder.Func, author string, replyTimeout time.Duration) error {
	program := tea.NewProgram(
		newModel(respond, author, replyTimeout),
		tea.WithContext(ctx),
		tea.WithMouseCellMotion(),
	)
	if _, err := program.Run(); err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(renderGoodbyeBanner())
	return nil
}

func renderGoodbyeBanner() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("88")).
		Padding(1, 2)

	return style.Render("📟 chatcore session closed")
}
