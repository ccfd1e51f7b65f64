// Package telegram is the Telegram transport adapter. It maps native
// commands onto the logical command surface and relays free text.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/mvanwyk/relaybot/internal/gateway"
	. "github.com/mvanwyk/relaybot/internal/logging"
	"github.com/mvanwyk/relaybot/internal/session"
)

// commandMap translates Telegram commands to logical verbs.
var commandMap = map[string]string{
	"/start":   session.CmdStart,
	"/help":    session.CmdHelp,
	"/setapi":  session.CmdSetCredential,
	"/reset":   session.CmdReset,
	"/params":  session.CmdParams,
	"/setlang": session.CmdSetLanguage,
}

// Bot is the Telegram bot.
type Bot struct {
	bot *tele.Bot
	gw  *gateway.Gateway
}

// New creates the bot and registers handlers.
func New(token string, gw *gateway.Gateway) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token not configured")
	}

	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	L_debug("telegram: bot created", "username", bot.Me.Username, "id", bot.Me.ID)

	b := &Bot{bot: bot, gw: gw}
	b.setupHandlers()

	return b, nil
}

func (b *Bot) setupHandlers() {
	b.bot.Handle(tele.OnText, b.handleText)
	b.bot.Handle(&tele.Btn{Unique: "lang"}, b.handleLanguagePick)

	for cmd := range commandMap {
		cmd := cmd
		b.bot.Handle(cmd, func(c tele.Context) error {
			return b.handleCommand(c, cmd)
		})
	}
}

// Start begins long polling. Blocks until Stop.
func (b *Bot) Start() {
	L_info("telegram: starting long poller")
	b.bot.Start()
}

// Stop stops the poller.
func (b *Bot) Stop() {
	b.bot.Stop()
}

func (b *Bot) handleCommand(c tele.Context, cmd string) error {
	if c.Chat().Type != tele.ChatPrivate {
		return nil
	}

	in := session.Input{
		Text:      c.Text(),
		IsCommand: true,
		Command:   commandMap[cmd],
		Args:      strings.Fields(c.Message().Payload),
	}
	return b.dispatch(c, in, false)
}

func (b *Bot) handleText(c tele.Context) error {
	if c.Chat().Type != tele.ChatPrivate {
		return nil
	}

	text := c.Text()
	if strings.HasPrefix(text, "/") {
		// A command without a registered handler. The machine replies with
		// the help text.
		fields := strings.Fields(text)
		verb := strings.TrimPrefix(fields[0], "/")
		if logical, ok := commandMap[fields[0]]; ok {
			verb = logical
		}
		in := session.Input{
			Text:      text,
			IsCommand: true,
			Command:   verb,
			Args:      fields[1:],
		}
		return b.dispatch(c, in, false)
	}

	_ = c.Notify(tele.Typing)
	return b.dispatch(c, session.Input{Text: text}, false)
}

// handleLanguagePick routes inline-keyboard callbacks as a language
// selection. The pick is dispatched as the set-language verb with the code
// inline, so a stale button pressed after the menu flow ended still sets the
// language instead of landing in the chat path. The prompt message is edited
// in place with the confirmation.
func (b *Bot) handleLanguagePick(c tele.Context) error {
	defer func() {
		_ = c.Respond(&tele.CallbackResponse{})
	}()

	code := strings.TrimSpace(c.Data())
	in := session.Input{
		Text:      code,
		IsCommand: true,
		Command:   session.CmdSetLanguage,
		Args:      []string{code},
	}
	return b.dispatch(c, in, true)
}

func (b *Bot) dispatch(c tele.Context, in session.Input, editInPlace bool) error {
	userID := fmt.Sprintf("%d", c.Sender().ID)
	resp := &responder{c: c, bot: b.bot, editFirst: editInPlace}

	if err := b.gw.HandleInbound(context.Background(), userID, in, resp); err != nil {
		L_error("telegram: turn failed", "user", userID, "error", err)
	}
	return nil
}

// responder delivers gateway replies over Telegram.
type responder struct {
	c         tele.Context
	bot       *tele.Bot
	editFirst bool
	edited    bool
}

func (r *responder) Send(text string) error {
	if r.editFirst && !r.edited {
		r.edited = true
		return r.c.Edit(text)
	}
	return r.c.Send(text)
}

// SendMenu renders the options as an inline keyboard, three per row, the way
// the language picker looks.
func (r *responder) SendMenu(prompt string, options []string) error {
	menu := &tele.ReplyMarkup{}

	var rows []tele.Row
	var row []tele.Btn
	for i, opt := range options {
		row = append(row, menu.Data(opt, "lang", opt))
		if (i+1)%3 == 0 || i == len(options)-1 {
			rows = append(rows, menu.Row(row...))
			row = nil
		}
	}
	menu.Inline(rows...)

	return r.c.Send(prompt, menu)
}

// Working sends a placeholder and returns a closure that edits it with the
// final text, falling back to a fresh send when the edit fails.
func (r *responder) Working(text string) func(string) error {
	msg, err := r.bot.Send(r.c.Chat(), text)
	if err != nil || msg == nil {
		L_warn("telegram: placeholder send failed", "error", err)
		return r.Send
	}

	return func(final string) error {
		if _, err := r.bot.Edit(msg, final); err != nil {
			return r.c.Send(final)
		}
		return nil
	}
}
