// Package prompt assembles the bounded message sequence sent upstream.
// It is pure transformation: no I/O, no clock, no locks.
package prompt

import (
	"github.com/mvanwyk/relaybot/internal/session"
	"github.com/mvanwyk/relaybot/internal/tokens"
)

// perMessageOverhead approximates the tokens spent on role and framing per
// message in the chat format.
const perMessageOverhead = 4

// Trimmer bounds prompts by turn count or, when MaxTokens is set, by token
// budget. Oldest pairs drop first; the newest turn always survives.
type Trimmer struct {
	MaxTurns  int // user+assistant pairs; <=0 means unbounded
	MaxTokens int // token budget; 0 disables and MaxTurns applies
	est       *tokens.Estimator
}

// NewTrimmer builds a Trimmer. The token estimator is only consulted when
// maxTokens is non-zero.
func NewTrimmer(maxTurns, maxTokens int) *Trimmer {
	return &Trimmer{
		MaxTurns:  maxTurns,
		MaxTokens: maxTokens,
		est:       tokens.Get(),
	}
}

// Build returns the record's history trimmed to the configured bound. The
// caller appends the new user turn to the record before building, so the
// last entry is always the message being answered.
func (t *Trimmer) Build(rec *session.Record) []session.Turn {
	history := rec.History
	if len(history) == 0 {
		return nil
	}

	var start int
	if t.MaxTokens > 0 {
		start = t.tokenCut(history)
	} else {
		start = t.turnCut(history)
	}

	// Never start the window on an assistant turn: if the cut landed
	// mid-pair, slide forward to the next user turn.
	for start < len(history)-1 && history[start].Role == session.RoleAssistant {
		start++
	}

	return history[start:]
}

func (t *Trimmer) turnCut(history []session.Turn) int {
	if t.MaxTurns <= 0 {
		return 0
	}
	max := t.MaxTurns * 2
	if len(history) <= max {
		return 0
	}
	return len(history) - max
}

func (t *Trimmer) tokenCut(history []session.Turn) int {
	budget := t.MaxTokens
	// Walk backwards from the newest turn; the newest always fits.
	for i := len(history) - 1; i >= 0; i-- {
		cost := t.est.Count(history[i].Content) + perMessageOverhead
		if i < len(history)-1 && cost > budget {
			return i + 1
		}
		budget -= cost
	}
	return 0
}
