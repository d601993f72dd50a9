package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	tele "gopkg.in/telebot.v3"

	"instantride/internal/domain"
	"instantride/internal/logger"
	"instantride/internal/service"
)

// TelegramContactPrefix marks a driver contact that is a Telegram chat ID,
// e.g. "tg:123456789".
const TelegramContactPrefix = "tg:"

// sender is the part of *tele.Bot the notifier uses.
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type driverLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Driver, error)
}

var summaryTitles = map[service.NotificationType]string{
	service.NotificationDriverAssigned: "🚕 New ride assigned",
	service.NotificationSeatAssigned:   "🚌 New seat booked",
	service.NotificationStatusChanged:  "🏁 Ride completed",
	service.NotificationRideCancelled:  "⚠️ Ride cancelled",
}

// TelegramNotifier messages drivers whose contact is a Telegram chat and
// copies customer messages to the operations chat.
type TelegramNotifier struct {
	bot     sender
	drivers driverLookup
	opsChat int64
	log     logger.ILogger
}

// NewTelegramBot creates a bot that answers /start with the caller's chat
// ID, which operators record as the driver's contact.
func NewTelegramBot(token string, log logger.ILogger) (*tele.Bot, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	b.Handle("/start", func(c tele.Context) error {
		log.Info("telegram chat registered", logger.Int64("chat_id", c.Chat().ID))
		return c.Send(fmt.Sprintf("Your driver contact is %s%d. Share it with dispatch.", TelegramContactPrefix, c.Chat().ID))
	})
	return b, nil
}

// NewTelegramNotifier creates a new TelegramNotifier. opsChat 0 drops
// customer messages.
func NewTelegramNotifier(bot sender, drivers driverLookup, opsChat int64, log logger.ILogger) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, drivers: drivers, opsChat: opsChat, log: log}
}

// NotifyDriver sends summary to the driver's chat. Drivers reachable only by
// phone are skipped.
func (n *TelegramNotifier) NotifyDriver(ctx context.Context, driverID string, summary service.RideSummary) error {
	driver, err := n.drivers.GetByID(ctx, driverID)
	if err != nil {
		return err
	}
	chatID, ok := ChatID(driver.Contact)
	if !ok {
		n.log.Debug("driver has no telegram contact", logger.String("driver_id", driverID))
		return nil
	}
	_, err = n.bot.Send(tele.ChatID(chatID), formatSummary(summary))
	return err
}

// NotifyCustomer forwards message to the operations chat.
func (n *TelegramNotifier) NotifyCustomer(_ context.Context, rideID string, message string) error {
	if n.opsChat == 0 {
		return nil
	}
	_, err := n.bot.Send(tele.ChatID(n.opsChat), fmt.Sprintf("[%s] %s", rideID, message))
	return err
}

// ChatID extracts the chat ID from a "tg:<id>" contact.
func ChatID(contact string) (int64, bool) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(contact), TelegramContactPrefix)
	if !ok {
		return 0, false
	}
	id, err := cast.ToInt64E(raw)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func formatSummary(s service.RideSummary) string {
	title, ok := summaryTitles[s.Type]
	if !ok {
		title = "ℹ️ Ride update"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n🆔 %s (%s)\n📍 %s → %s\n💰 %s, %s",
		title, s.PublicCode, s.VehicleClass, s.Pickup, s.Dropoff, service.FormatNaira(s.Fare), s.Payment)
	if s.ETAMin > 0 {
		fmt.Fprintf(&b, "\n⏱ ETA %d min", s.ETAMin)
	}
	if s.VehicleClass == string(domain.VehicleClassBus) && s.Type == service.NotificationSeatAssigned {
		fmt.Fprintf(&b, "\n💺 Seat %d", s.Seat)
	}
	if s.Note != "" {
		fmt.Fprintf(&b, "\n📝 %s", s.Note)
	}
	return b.String()
}
