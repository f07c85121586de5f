package notification

import (
	"context"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nikoksr/notify"

	"acmonitorbot/pkg/model"
	"acmonitorbot/pkg/pubsub"
	"acmonitorbot/pkg/settings"
)

// Lister enumerates the chats subscribed to an alert kind.
type Lister interface {
	Subscribers(kind string) ([]settings.Subscriber, error)
}

// Manager fans monitor alerts out to every subscribed chat.
type Manager struct {
	ctx       context.Context
	bot       *tgbotapi.BotAPI
	lister    Lister
	pubsubMgr *pubsub.PubSub
}

func NewManager(ctx context.Context, bot *tgbotapi.BotAPI, lister Lister, pubsubMgr *pubsub.PubSub) *Manager {
	return &Manager{
		ctx:       ctx,
		bot:       bot,
		lister:    lister,
		pubsubMgr: pubsubMgr,
	}
}

func (m *Manager) Start(exitChan <-chan bool) {
	alertChan := m.pubsubMgr.Subscribe(model.PubSubAlertsTopic)
	for {
		select {
		case <-exitChan:
			return
		case payload := <-alertChan:
			ev, err := model.DecodeAlert(payload)
			if err != nil {
				log.Printf("Error decoding alert: %s", err.Error())
				continue
			}
			m.handleAlert(ev)
		}
	}
}

func (m *Manager) handleAlert(ev model.AlertEvent) {
	subs, err := m.lister.Subscribers(ev.Kind)
	if err != nil {
		log.Printf("Error listing subscribers for alert: %s", err.Error())
		return
	}
	if len(subs) == 0 {
		return
	}
	log.Printf("Sending %q alert to %d chats\n", ev.Kind, len(subs))

	tg := Telegram{}
	tg.SetClient(m.bot)
	for _, sub := range subs {
		chatID, err := strconv.ParseInt(sub.ChatID, 0, 64)
		if err != nil {
			continue
		}
		tg.AddReceivers(chatID)
	}

	n := notify.NewWithServices(tg)
	if err := n.Send(m.ctx, alertSubject(ev.Kind), ev.String()); err != nil {
		log.Printf("Error notifying chats: %s", err.Error())
	}
}

func alertSubject(kind string) string {
	switch kind {
	case model.AlertServerUp:
		return "Server is up:"
	case model.AlertServerDown:
		return "Server went down:"
	case model.AlertOneHour:
		return "Qualifying starts in one hour:"
	case model.AlertQualifying:
		return "Qualifying is underway:"
	}
	return "Server alert:"
}
