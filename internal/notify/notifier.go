package notify

import (
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier recibe los eventos de negocio que los administradores quieren
// ver en tiempo real: transferencias pendientes, rechazos, bajas.
type Notifier interface {
	NotifyAdmin(text string)
}

// Telegram envía los avisos al chat de administración.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token, chatID string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, err
	}

	return &Telegram{bot: bot, chatID: id}, nil
}

func (t *Telegram) NotifyAdmin(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("No se pudo enviar el aviso al chat de administración", "error", err)
	}
}

// Noop descarta los avisos; se usa cuando el bot no está configurado y en pruebas.
type Noop struct{}

func (Noop) NotifyAdmin(string) {}
