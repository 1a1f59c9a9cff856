package gateway

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rahul/kadam/internal/agent"
	"github.com/rahul/kadam/internal/governance"
	"github.com/rahul/kadam/internal/observability"
)

// Telegram caps messages at 4096 chars; leave headroom for the step prefix.
const maxChatChars = 3900

type TelegramGateway struct {
	Bot      *tgbotapi.BotAPI
	Director Director
	Policy   governance.PolicyEngine
	Events   *observability.Logger
}

var _ Messenger = (*TelegramGateway)(nil)

func NewTelegramGateway(token string, director Director, policy governance.PolicyEngine) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	return &TelegramGateway{
		Bot:      bot,
		Director: director,
		Policy:   policy,
	}, nil
}

func (tg *TelegramGateway) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		log.Printf("[%s] %s", update.Message.From.UserName, update.Message.Text)
		tg.handleObjective(update.Message.Chat.ID, update.Message.Text)
	}
	return nil
}

// handleObjective admits, runs and reports one objective. Runs are
// synchronous: a chat gets its results before the next update is read.
func (tg *TelegramGateway) handleObjective(chatID int64, objective string) {
	state, res, err := tg.serve(context.Background(), objective)
	if res.Effect == governance.EffectDeny {
		tg.reply(chatID, "Objective rejected: "+res.Reason)
		return
	}
	if state == nil && err != nil {
		log.Printf("Objective not served: %v", err)
		tg.reply(chatID, "I could not process that objective, try again later.")
		return
	}
	if err != nil {
		log.Printf("Run failed: %v", err)
		tg.reply(chatID, fmt.Sprintf("Run failed after %d/%d tasks: %v", len(state.Results), len(state.Plan), err))
		for i, report := range state.Results {
			tg.reply(chatID, fmt.Sprintf("Step %d: %s\n%s", i+1, state.Plan[i], clipForChat(report)))
		}
		return
	}

	var plan strings.Builder
	fmt.Fprintf(&plan, "Plan (%d tasks):\n", len(state.Plan))
	for i, task := range state.Plan {
		fmt.Fprintf(&plan, "%d. %s\n", i+1, task)
	}
	tg.reply(chatID, plan.String())

	for i, report := range state.Results {
		tg.reply(chatID, fmt.Sprintf("Step %d: %s\n%s", i+1, state.Plan[i], clipForChat(report)))
	}
	tg.reply(chatID, fmt.Sprintf("Done: %d/%d tasks completed.", len(state.Results), len(state.Plan)))
}

// serve checks one objective against the policy and, when admitted, runs it
// to completion. A denied objective never reaches the Director.
func (tg *TelegramGateway) serve(ctx context.Context, objective string) (*agent.State, governance.Result, error) {
	res := governance.Result{Effect: governance.EffectAllow}
	if tg.Policy != nil {
		var err error
		res, err = tg.Policy.Evaluate(ctx, governance.Request{Objective: objective, Source: "telegram"})
		if err != nil {
			return nil, governance.Result{}, err
		}
		tg.Events.LogPolicyCheck("", objective, string(res.Effect), res.Reason)
		if res.Effect == governance.EffectDeny {
			return nil, res, nil
		}
	}

	st, err := tg.Director.RunState(ctx, objective)
	return st, res, err
}

func (tg *TelegramGateway) reply(chatID int64, text string) {
	if err := tg.Send(fmt.Sprintf("%d", chatID), text); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id := 0
	fmt.Sscanf(chatID, "%d", &id)
	if id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	msg := tgbotapi.NewMessage(int64(id), text)
	msg.ParseMode = "Markdown" // Enable markdown for better alerts
	_, err := tg.Bot.Send(msg)
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}

func clipForChat(s string) string {
	runes := []rune(s)
	if len(runes) <= maxChatChars {
		return s
	}
	return string(runes[:maxChatChars]) + "..."
}
