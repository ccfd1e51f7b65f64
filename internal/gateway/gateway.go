// Package gateway orchestrates one turn per inbound message: dispatch,
// state interpretation, completion, persistence, replies.
package gateway

import (
	"context"

	"github.com/mvanwyk/relaybot/internal/dispatch"
	"github.com/mvanwyk/relaybot/internal/i18n"
	"github.com/mvanwyk/relaybot/internal/llm"
	. "github.com/mvanwyk/relaybot/internal/logging"
	"github.com/mvanwyk/relaybot/internal/prompt"
	"github.com/mvanwyk/relaybot/internal/session"
)

// Store is the persistence surface the gateway needs.
type Store interface {
	Load(ctx context.Context, userID string) (*session.Record, error)
	Save(ctx context.Context, rec *session.Record) error
}

// Responder delivers replies for one inbound message. Multiple sends per
// inbound message are permitted. Send failures are the transport's problem;
// the gateway logs them and moves on.
type Responder interface {
	Send(text string) error
	// SendMenu renders a pick-one menu (the language keyboard on Telegram).
	SendMenu(prompt string, options []string) error
	// Working shows a progress placeholder and returns a function that
	// replaces it with the final text.
	Working(text string) func(text string) error
}

// Options tunes the gateway.
type Options struct {
	MaxTurns        int  // history cap in user+assistant pairs
	MaxTokens       int  // token budget for prompts; 0 = use MaxTurns only
	ProbeCredential bool // validate submitted keys against the upstream
}

// Gateway wires the core together. All per-user mutation happens inside
// WithTurn, so the struct itself holds no mutable state beyond its deps.
type Gateway struct {
	store     Store
	completer llm.Completer
	disp      *dispatch.Dispatcher
	trimmer   *prompt.Trimmer
	opts      Options
}

// New creates a gateway.
func New(st Store, completer llm.Completer, opts Options) *Gateway {
	return &Gateway{
		store:     st,
		completer: completer,
		disp:      dispatch.New(),
		trimmer:   prompt.NewTrimmer(opts.MaxTurns, opts.MaxTokens),
		opts:      opts,
	}
}

// HandleInbound processes one message under the user's exclusive turn.
// Every failure path produces exactly one user-visible message.
func (g *Gateway) HandleInbound(ctx context.Context, userID string, in session.Input, resp Responder) error {
	return g.disp.WithTurn(userID, func() error {
		rec, err := g.store.Load(ctx, userID)
		if err != nil {
			L_error("gateway: load failed", "user", userID, "error", err)
			g.send(resp, i18n.Get(i18n.DefaultLanguage, "try_again"))
			return nil
		}

		out := session.Step(rec, in)

		switch out.Kind {
		case session.ActSetCredential:
			g.setCredential(ctx, rec, out.Credential, resp)
		case session.ActChat:
			g.chat(ctx, rec, out.Text, resp)
		case session.ActLanguageMenu:
			if !g.save(ctx, rec, resp) {
				return nil
			}
			if err := resp.SendMenu(g.text(rec, "language_prompt"), i18n.Supported); err != nil {
				L_warn("gateway: menu send failed", "user", userID, "error", err)
			}
		default:
			if !g.save(ctx, rec, resp) {
				return nil
			}
			g.reply(rec, out.Replies, resp)
		}
		return nil
	})
}

// setCredential probes (when configured) and stores a submitted key. The key
// itself never reaches the logs.
func (g *Gateway) setCredential(ctx context.Context, rec *session.Record, key string, resp Responder) {
	done := resp.Working(g.text(rec, "processing"))

	if g.opts.ProbeCredential {
		if err := g.completer.Probe(ctx, key); err != nil {
			ue := llm.Classify(err)
			L_info("gateway: credential probe rejected", "user", rec.UserID, "kind", string(ue.Kind))
			// Stay in the credential flow for another attempt. Nothing
			// changed in memory, so there is nothing to save.
			if ue.Kind == llm.KindAuth {
				g.finish(rec, done, g.text(rec, "api_invalid", "rejected by the upstream service"))
			} else {
				g.finish(rec, done, g.upstreamText(rec, ue))
			}
			return
		}
	}

	rec.Credential = key
	rec.State = session.StateIdle
	if !g.saveOrFinish(ctx, rec, done) {
		return
	}
	L_info("gateway: credential set", "user", rec.UserID, "keyLength", len(key))
	g.finish(rec, done, g.text(rec, "api_set_success"))
}

// chat runs one completion turn. A failed turn commits nothing: the user
// message and the absent reply stay out of the persisted history.
func (g *Gateway) chat(ctx context.Context, rec *session.Record, text string, resp Responder) {
	done := resp.Working(g.text(rec, "processing"))

	rec.Append(session.RoleUser, text)
	turns := g.trimmer.Build(rec)

	answer, err := g.completer.Complete(ctx, turns, rec.Params, rec.Credential)
	if err != nil {
		ue := llm.Classify(err)
		L_warn("gateway: completion failed", "user", rec.UserID, "kind", string(ue.Kind))
		g.finish(rec, done, g.upstreamText(rec, ue))
		return
	}

	rec.Append(session.RoleAssistant, answer)
	g.bound(rec)

	if !g.saveOrFinish(ctx, rec, done) {
		return
	}
	g.finish(rec, done, answer)
}

// bound caps the stored history. In turn-count mode the pair cap applies; in
// token-budget mode the stored history is cut to the prompt window, so it
// never outgrows what the next completion could see.
func (g *Gateway) bound(rec *session.Record) {
	if g.opts.MaxTurns > 0 {
		rec.Trim(g.opts.MaxTurns)
		return
	}
	if g.opts.MaxTokens > 0 {
		rec.History = append([]session.Turn(nil), g.trimmer.Build(rec)...)
	}
}

// save persists the record; on failure the user is told to try again and the
// in-memory turn is discarded (the next turn reloads the pre-turn state).
func (g *Gateway) save(ctx context.Context, rec *session.Record, resp Responder) bool {
	if err := g.store.Save(ctx, rec); err != nil {
		L_error("gateway: save failed", "user", rec.UserID, "error", err)
		g.send(resp, g.text(rec, "try_again"))
		return false
	}
	return true
}

// saveOrFinish is save for flows holding a progress placeholder.
func (g *Gateway) saveOrFinish(ctx context.Context, rec *session.Record, done func(string) error) bool {
	if err := g.store.Save(ctx, rec); err != nil {
		L_error("gateway: save failed", "user", rec.UserID, "error", err)
		g.finish(rec, done, g.text(rec, "try_again"))
		return false
	}
	return true
}

func (g *Gateway) reply(rec *session.Record, replies []session.Reply, resp Responder) {
	for _, r := range replies {
		g.send(resp, i18n.Get(rec.Language, r.Key, r.Args...))
	}
}

func (g *Gateway) send(resp Responder, text string) {
	if err := resp.Send(text); err != nil {
		// Committed state stays committed; the reply is just undeliverable.
		L_warn("gateway: send failed", "error", err)
	}
}

func (g *Gateway) finish(rec *session.Record, done func(string) error, text string) {
	if err := done(text); err != nil {
		L_warn("gateway: send failed", "user", rec.UserID, "error", err)
	}
}

func (g *Gateway) text(rec *session.Record, key string, args ...interface{}) string {
	return i18n.Get(rec.Language, key, args...)
}

func (g *Gateway) upstreamText(rec *session.Record, ue *llm.UpstreamError) string {
	switch ue.Kind {
	case llm.KindAuth:
		return g.text(rec, "upstream_auth")
	case llm.KindRateLimit:
		return g.text(rec, "upstream_ratelimit")
	case llm.KindTimeout:
		return g.text(rec, "upstream_timeout")
	case llm.KindOverloaded:
		return g.text(rec, "upstream_busy")
	default:
		return g.text(rec, "upstream_error", ue.Err.Error())
	}
}
