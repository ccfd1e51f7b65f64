package session

import (
	"strings"

	"github.com/mvanwyk/relaybot/internal/i18n"
)

// Logical command verbs. The transport maps its native syntax onto these.
const (
	CmdStart         = "start"
	CmdHelp          = "help"
	CmdSetCredential = "set-credential"
	CmdReset         = "reset"
	CmdParams        = "params"
	CmdSetLanguage   = "set-language"
)

// Input is one inbound message, already split by the transport.
type Input struct {
	Text      string
	IsCommand bool
	Command   string
	Args      []string
}

// ActionKind tells the gateway what effectful work, if any, the turn needs.
type ActionKind int

const (
	// ActNone means the machine handled the input; only replies remain.
	ActNone ActionKind = iota
	// ActSetCredential asks the gateway to probe and store Outcome.Credential.
	ActSetCredential
	// ActChat asks the gateway to run a completion for Outcome.Text.
	ActChat
	// ActLanguageMenu asks the transport to render the language picker.
	ActLanguageMenu
)

// Reply is a localized message to send, resolved against the record's
// language by the gateway.
type Reply struct {
	Key  string
	Args []interface{}
}

// Outcome is the result of interpreting one input.
type Outcome struct {
	Kind       ActionKind
	Credential string // ActSetCredential
	Text       string // ActChat
	Replies    []Reply
}

func reply(key string, args ...interface{}) Reply {
	return Reply{Key: key, Args: args}
}

// Step interprets one input against the record's current state. It mutates
// the record for pure transitions (state tags, params, language, reset) and
// defers anything that touches I/O to the gateway via the returned outcome.
// It performs no I/O itself.
func Step(rec *Record, in Input) Outcome {
	if in.IsCommand {
		// A command arriving mid-flow cancels the pending interaction and
		// is handled as if the user were idle. Never silently discarded.
		// help and start are informational and leave the state alone.
		if rec.State != StateIdle && in.Command != CmdHelp && in.Command != CmdStart {
			rec.State = StateIdle
			rec.Pending = ""
		}
		return stepCommand(rec, in)
	}

	switch rec.State {
	case StateAwaitingCredential:
		return stepCredential(rec, in.Text)
	case StateAwaitingLanguage:
		return stepLanguage(rec, in.Text)
	case StateAwaitingParamEdit:
		return stepParamValue(rec, in.Text)
	default:
		return stepChat(rec, in.Text)
	}
}

func stepCommand(rec *Record, in Input) Outcome {
	switch in.Command {
	case CmdStart:
		out := Outcome{Replies: []Reply{reply("welcome")}}
		if rec.Credential == "" {
			rec.State = StateAwaitingCredential
			out.Replies = append(out.Replies, reply("api_request"))
		} else {
			out.Replies = append(out.Replies, reply("chat_start"))
		}
		return out

	case CmdHelp:
		return Outcome{Replies: []Reply{reply("help_message")}}

	case CmdSetCredential:
		rec.State = StateAwaitingCredential
		return Outcome{Replies: []Reply{reply("api_request")}}

	case CmdReset:
		rec.ResetHistory()
		return Outcome{Replies: []Reply{reply("chat_reset")}}

	case CmdParams:
		return stepParams(rec, in.Args)

	case CmdSetLanguage:
		// A code supplied inline ("/setlang en", or a keyboard callback
		// pressed after the menu flow already ended) applies immediately.
		if len(in.Args) > 0 {
			return stepLanguage(rec, in.Args[0])
		}
		rec.State = StateAwaitingLanguage
		return Outcome{Kind: ActLanguageMenu, Replies: []Reply{reply("language_prompt")}}

	default:
		return Outcome{Replies: []Reply{reply("help_message")}}
	}
}

func stepParams(rec *Record, args []string) Outcome {
	switch len(args) {
	case 0:
		return Outcome{Replies: []Reply{
			reply("params_current", rec.Params.Render()),
			reply("params_usage"),
		}}
	case 1:
		// Name only: prompt for the value and wait for the next message.
		name := args[0]
		if !rec.Params.Known(name) {
			return Outcome{Replies: []Reply{reply("params_invalid", unknownParam(name).Error())}}
		}
		rec.State = StateAwaitingParamEdit
		rec.Pending = name
		return Outcome{Replies: []Reply{reply("params_value_prompt", name)}}
	default:
		return setParam(rec, args[0], args[1])
	}
}

func stepParamValue(rec *Record, text string) Outcome {
	name := rec.Pending
	rec.State = StateIdle
	rec.Pending = ""
	return setParam(rec, name, strings.TrimSpace(text))
}

func setParam(rec *Record, name, value string) Outcome {
	if err := rec.Params.Set(name, value); err != nil {
		return Outcome{Replies: []Reply{reply("params_invalid", err.Error())}}
	}
	return Outcome{Replies: []Reply{reply("params_set_success", name, value)}}
}

func stepCredential(rec *Record, text string) Outcome {
	key := strings.TrimSpace(text)
	if err := CheckCredentialShape(key); err != nil {
		// Stay in StateAwaitingCredential for another attempt.
		return Outcome{Replies: []Reply{reply("api_invalid", err.Error())}}
	}
	return Outcome{Kind: ActSetCredential, Credential: key}
}

// CheckCredentialShape performs the syntactic part of credential validation.
// The optional live probe is the gateway's job.
func CheckCredentialShape(key string) error {
	if key == "" {
		return &ValidationError{"key must not be empty"}
	}
	if strings.ContainsAny(key, " \t\n") {
		return &ValidationError{"key must not contain whitespace"}
	}
	return nil
}

func stepLanguage(rec *Record, text string) Outcome {
	code := strings.ToLower(strings.TrimSpace(text))
	if !i18n.IsSupported(code) {
		// Stay in StateAwaitingLanguage for another pick.
		return Outcome{Replies: []Reply{reply("language_invalid", code)}}
	}
	rec.Language = code
	rec.State = StateIdle
	return Outcome{Replies: []Reply{reply("language_set")}}
}

func stepChat(rec *Record, text string) Outcome {
	if rec.Credential == "" {
		return Outcome{Replies: []Reply{reply("need_credential")}}
	}
	return Outcome{Kind: ActChat, Text: text}
}
