package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"acmonitorbot/pkg/config"
	"acmonitorbot/pkg/messenger"
	"acmonitorbot/pkg/model"
	"acmonitorbot/pkg/monitor"
	"acmonitorbot/pkg/notification"
	"acmonitorbot/pkg/pubsub"
	"acmonitorbot/pkg/session"
	"acmonitorbot/pkg/settings"
)

const (
	commandStandings        = "/standings"
	commandAlerts           = "/alerts"
	commandAlertsUp         = "/alerts_up"
	commandAlertsDown       = "/alerts_down"
	commandAlertsOneHour    = "/alerts_onehour"
	commandAlertsQualifying = "/alerts_qualifying"
)

var (
	bot         *tgbotapi.BotAPI
	monitorMgr  *monitor.Manager
	settingsMgr *settings.Manager
)

func main() {
	defaultConfig := os.Getenv("MONITOR_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "./config.yml"
	}
	configPath := flag.String("config", defaultConfig, "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Panic(err)
	}

	token := cfg.Telegram.Token
	if token == "" {
		token = os.Getenv("TELEGRAM_TOKEN")
	}
	bot, err = tgbotapi.NewBotAPI(token)
	if err != nil {
		// Abort if something is wrong
		log.Panic(err)
	}
	bot.Debug = false

	settingsMgr, err = settings.NewManager(cfg.Monitor.SettingsDBPath)
	if err != nil {
		log.Panic(err)
	}
	defer settingsMgr.Close()

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)

	store := session.NewStore(cfg.Monitor.StatePath, cfg.Monitor.ArchiveDir, cfg.Monitor.ArchiveKeep)
	st, err := store.Load()
	if err != nil {
		log.Panic(err)
	}

	pubsubMgr := pubsub.NewPubSub()
	msg := messenger.New(bot)
	monitorMgr = monitor.NewManager(ctx, cfg, msg, store, st, pubsubMgr)

	notificationMgr := notification.NewManager(ctx, bot, settingsMgr, pubsubMgr)
	notificationExit := make(chan bool)
	go notificationMgr.Start(notificationExit)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)
	go receiveUpdates(ctx, updates)

	log.Println("Start monitoring. Press Ctrl-C to stop it")

	ticker := time.NewTicker(cfg.Monitor.PollInterval)
	tickerDone := make(chan bool)
	monitorMgr.Sync(ticker, tickerDone)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	// lock the main thread until we receive a signal
	<-sigs

	ticker.Stop()
	tickerDone <- true
	notificationExit <- true

	cancel()
}

func receiveUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			handleUpdate(ctx, update)
		}
	}
}

func handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	handleMessage(ctx, update.Message)
}

func handleMessage(ctx context.Context, message *tgbotapi.Message) {
	user := message.From
	text := message.Text

	if user == nil {
		return
	}

	log.Printf("%s wrote %s", user.FirstName, text)

	var err error
	if message.IsCommand() {
		err = handleCommand(ctx, message.Chat.ID, text)
	}

	if err != nil {
		log.Printf("An error occured: %s", err.Error())
	}
}

func handleCommand(ctx context.Context, chatId int64, command string) error {
	switch command {
	case commandStandings:
		msg := tgbotapi.NewMessage(chatId, monitorMgr.StandingsTable())
		msg.ParseMode = tgbotapi.ModeMarkdown
		_, err := bot.Send(msg)
		return err

	case commandAlerts:
		alerts, err := settingsMgr.List(fmt.Sprint(chatId))
		if err != nil {
			return err
		}
		return sendAlertStatus(chatId, alerts)

	case commandAlertsUp:
		return toggleAlert(chatId, model.AlertServerUp)
	case commandAlertsDown:
		return toggleAlert(chatId, model.AlertServerDown)
	case commandAlertsOneHour:
		return toggleAlert(chatId, model.AlertOneHour)
	case commandAlertsQualifying:
		return toggleAlert(chatId, model.AlertQualifying)
	}

	return nil
}

func toggleAlert(chatId int64, kind string) error {
	alerts, err := settingsMgr.Toggle(fmt.Sprint(chatId), kind)
	if err != nil {
		return err
	}
	return sendAlertStatus(chatId, alerts)
}

func sendAlertStatus(chatId int64, alerts settings.Alerts) error {
	text := alerts.String() + "\n\nToggle with " + commandAlertsUp + ", " + commandAlertsDown + ", " + commandAlertsOneHour + ", " + commandAlertsQualifying
	msg := tgbotapi.NewMessage(chatId, text)
	_, err := bot.Send(msg)
	return err
}
