package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"chatcore/pkg/channel/telegram"
	"chatcore/pkg/config"
	"chatcore/pkg/responder"

	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"
)

var telegramResponder string

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Work with Telegram channel payloads",
}

var telegramMapCmd = &cobra.Command{
	Use:   "map [update.json|-]",
	Short: "Map one Telegram update to the send requests its replies produce",
	Long:  "Reads a Telegram update as JSON, builds a message from it, runs the selected responder and prints one sendMessage request per reply. Nothing is sent.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		respond, err := responderByName(telegramResponder)
		if err != nil {
			return err
		}

		source := "-"
		if len(args) == 1 {
			source = args[0]
		}
		update, err := readUpdate(cmd.InOrStdin(), source)
		if err != nil {
			return err
		}

		params, mapErr := mapTelegramUpdate(activeConfig().Channels.Telegram, update, respond)
		if params != nil {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(params); err != nil {
				return errors.Join(mapErr, fmt.Errorf("write send requests: %w", err))
			}
		}

		return mapErr
	},
}

func init() {
	rootCmd.AddCommand(telegramCmd)
	telegramCmd.AddCommand(telegramMapCmd)
	telegramMapCmd.Flags().StringVar(&telegramResponder, "responder", "inspect", "reply producer: inspect or echo")
}

func readUpdate(stdin io.Reader, source string) (telego.Update, error) {
	var (
		content []byte
		err     error
	)
	if strings.TrimSpace(source) == "-" {
		content, err = io.ReadAll(stdin)
	} else {
		content, err = os.ReadFile(source)
	}
	if err != nil {
		return telego.Update{}, fmt.Errorf("read update: %w", err)
	}

	var update telego.Update
	if err := json.Unmarshal(content, &update); err != nil {
		return telego.Update{}, fmt.Errorf("parse update: %w", err)
	}

	return update, nil
}

// mapTelegramUpdate runs one update through the mapper and respond. Updates the
// mapper ignores produce an empty, non-nil request list. When a bot token is
// configured the bot handle is attached to the message as its client; building
// it makes no API call.
func mapTelegramUpdate(cfg config.TelegramConfig, update telego.Update, respond responder.Func) ([]*telego.SendMessageParams, error) {
	if !cfg.Enabled {
		return nil, errors.New("telegram channel is disabled: set channels.telegram.enabled")
	}

	var client any
	if token := strings.TrimSpace(cfg.Token); token != "" {
		bot, err := telego.NewBot(token, telego.WithDiscardLogger())
		if err != nil {
			return nil, fmt.Errorf("configure telegram bot: %w", err)
		}
		client = bot
	}

	mapper := telegram.NewMapper(cfg, slog.Default())
	msg, ok, err := mapper.Inbound(update, client)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []*telego.SendMessageParams{}, nil
	}

	chatID, ok := telegram.ChatID(msg)
	if !ok {
		return nil, fmt.Errorf("update %d has no chat id", update.UpdateID)
	}

	params, err := mapper.Outbound(chatID, respond(msg))
	if params == nil {
		params = []*telego.SendMessageParams{}
	}
	return params, err
}
