package telegram

import (
	"fmt"

	"community_ops_bot/internal/domain/chat"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the chat.Gateway interface using the
// gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// ResolveChannel checks that the chat exists and the bot can see it.
func (tba *TelebotAdapter) ResolveChannel(channelID int64) error {
	if _, err := tba.bot.ChatByID(channelID); err != nil {
		return fmt.Errorf("%w: chat %d: %v", chat.ErrChannelNotFound, channelID, err)
	}
	return nil
}

// Send delivers a plain text message to the chat.
func (tba *TelebotAdapter) Send(channelID int64, text string) error {
	_, err := tba.bot.Send(&telebot.Chat{ID: channelID}, text)
	return err
}
