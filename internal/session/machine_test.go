package session

import (
	"testing"
)

func command(verb string, args ...string) Input {
	return Input{IsCommand: true, Command: verb, Args: args}
}

func text(s string) Input {
	return Input{Text: s}
}

func replyKeys(out Outcome) []string {
	keys := make([]string, 0, len(out.Replies))
	for _, r := range out.Replies {
		keys = append(keys, r.Key)
	}
	return keys
}

func hasReply(out Outcome, key string) bool {
	for _, r := range out.Replies {
		if r.Key == key {
			return true
		}
	}
	return false
}

func TestStartWithoutCredentialPromptsForKey(t *testing.T) {
	rec := NewRecord("u1")

	out := Step(rec, command(CmdStart))

	if rec.State != StateAwaitingCredential {
		t.Errorf("state = %q, want %q", rec.State, StateAwaitingCredential)
	}
	if !hasReply(out, "welcome") || !hasReply(out, "api_request") {
		t.Errorf("replies = %v, want welcome + api_request", replyKeys(out))
	}
}

func TestStartWithCredentialStaysIdle(t *testing.T) {
	rec := NewRecord("u1")
	rec.Credential = "sk-test"

	out := Step(rec, command(CmdStart))

	if rec.State != StateIdle {
		t.Errorf("state = %q, want idle", rec.State)
	}
	if !hasReply(out, "chat_start") {
		t.Errorf("replies = %v, want chat_start", replyKeys(out))
	}
}

func TestCredentialFlow(t *testing.T) {
	rec := NewRecord("u1")
	Step(rec, command(CmdSetCredential))

	if rec.State != StateAwaitingCredential {
		t.Fatalf("state = %q after set-credential", rec.State)
	}

	out := Step(rec, text("sk-valid-key"))
	if out.Kind != ActSetCredential {
		t.Fatalf("kind = %v, want ActSetCredential", out.Kind)
	}
	if out.Credential != "sk-valid-key" {
		t.Errorf("credential = %q", out.Credential)
	}
	// Storing the credential is the gateway's job; the machine leaves the
	// state for it to resolve after the probe.
	if rec.State != StateAwaitingCredential {
		t.Errorf("state = %q, want awaiting until gateway resolves", rec.State)
	}
}

func TestCredentialShapeRejected(t *testing.T) {
	rec := NewRecord("u1")
	rec.State = StateAwaitingCredential

	for _, bad := range []string{"", "   ", "two words"} {
		out := Step(rec, text(bad))
		if out.Kind != ActNone {
			t.Errorf("input %q: kind = %v, want ActNone", bad, out.Kind)
		}
		if !hasReply(out, "api_invalid") {
			t.Errorf("input %q: replies = %v, want api_invalid", bad, replyKeys(out))
		}
		if rec.State != StateAwaitingCredential {
			t.Errorf("input %q: state = %q, want to stay awaiting", bad, rec.State)
		}
	}
}

func TestCommandCancelsPendingCredential(t *testing.T) {
	rec := NewRecord("u1")
	rec.Credential = "sk-old"
	rec.Append(RoleUser, "hi")
	rec.Append(RoleAssistant, "hello")
	rec.State = StateAwaitingCredential

	// The user bails out of credential entry with /reset. The reset must
	// execute, not be swallowed.
	out := Step(rec, command(CmdReset))

	if rec.State != StateIdle {
		t.Errorf("state = %q, want idle", rec.State)
	}
	if len(rec.History) != 0 {
		t.Errorf("history len = %d, want 0", len(rec.History))
	}
	if !hasReply(out, "chat_reset") {
		t.Errorf("replies = %v, want chat_reset", replyKeys(out))
	}
	if rec.Credential != "sk-old" {
		t.Errorf("credential changed by cancel: %q", rec.Credential)
	}
}

func TestResetKeepsEverythingButHistory(t *testing.T) {
	rec := NewRecord("u1")
	rec.Credential = "sk-test"
	rec.Language = "zh"
	if err := rec.Params.Set("temperature", "0.9"); err != nil {
		t.Fatal(err)
	}
	rec.Append(RoleUser, "hi")

	Step(rec, command(CmdReset))

	if len(rec.History) != 0 {
		t.Errorf("history not cleared")
	}
	if rec.Credential != "sk-test" || rec.Language != "zh" {
		t.Errorf("reset touched credential or language")
	}
	if rec.Params.Temperature() != 0.9 {
		t.Errorf("reset touched params")
	}
}

func TestLanguageSelection(t *testing.T) {
	rec := NewRecord("u1")

	out := Step(rec, command(CmdSetLanguage))
	if out.Kind != ActLanguageMenu {
		t.Fatalf("kind = %v, want ActLanguageMenu", out.Kind)
	}
	if rec.State != StateAwaitingLanguage {
		t.Fatalf("state = %q", rec.State)
	}

	out = Step(rec, text("klingon"))
	if !hasReply(out, "language_invalid") {
		t.Errorf("replies = %v, want language_invalid", replyKeys(out))
	}
	if rec.State != StateAwaitingLanguage {
		t.Errorf("invalid pick left state %q, want to stay awaiting", rec.State)
	}

	out = Step(rec, text("ZH "))
	if !hasReply(out, "language_set") {
		t.Errorf("replies = %v, want language_set", replyKeys(out))
	}
	if rec.Language != "zh" {
		t.Errorf("language = %q, want zh", rec.Language)
	}
	if rec.State != StateIdle {
		t.Errorf("state = %q, want idle", rec.State)
	}
}

func TestLanguageCodeInline(t *testing.T) {
	rec := NewRecord("u1")

	out := Step(rec, command(CmdSetLanguage, "zh"))
	if !hasReply(out, "language_set") {
		t.Errorf("replies = %v, want language_set", replyKeys(out))
	}
	if rec.Language != "zh" || rec.State != StateIdle {
		t.Errorf("language = %q state = %q", rec.Language, rec.State)
	}

	out = Step(rec, command(CmdSetLanguage, "klingon"))
	if !hasReply(out, "language_invalid") {
		t.Errorf("replies = %v, want language_invalid", replyKeys(out))
	}
	if rec.Language != "zh" || rec.State != StateIdle {
		t.Errorf("invalid inline code changed record: language = %q state = %q", rec.Language, rec.State)
	}
}

func TestParamsShowAndSet(t *testing.T) {
	rec := NewRecord("u1")

	out := Step(rec, command(CmdParams))
	if !hasReply(out, "params_current") || !hasReply(out, "params_usage") {
		t.Errorf("replies = %v", replyKeys(out))
	}

	out = Step(rec, command(CmdParams, "temperature", "0.8"))
	if !hasReply(out, "params_set_success") {
		t.Errorf("replies = %v", replyKeys(out))
	}
	if rec.Params.Temperature() != 0.8 {
		t.Errorf("temperature = %v", rec.Params.Temperature())
	}

	out = Step(rec, command(CmdParams, "temperature", "5"))
	if !hasReply(out, "params_invalid") {
		t.Errorf("replies = %v", replyKeys(out))
	}
	if rec.Params.Temperature() != 0.8 {
		t.Errorf("rejected value changed params: %v", rec.Params.Temperature())
	}
}

func TestParamsTwoStepEdit(t *testing.T) {
	rec := NewRecord("u1")

	out := Step(rec, command(CmdParams, "max_tokens"))
	if !hasReply(out, "params_value_prompt") {
		t.Fatalf("replies = %v", replyKeys(out))
	}
	if rec.State != StateAwaitingParamEdit || rec.Pending != "max_tokens" {
		t.Fatalf("state = %q pending = %q", rec.State, rec.Pending)
	}

	out = Step(rec, text("512"))
	if !hasReply(out, "params_set_success") {
		t.Errorf("replies = %v", replyKeys(out))
	}
	if rec.Params.MaxTokens() != 512 {
		t.Errorf("max_tokens = %d", rec.Params.MaxTokens())
	}
	if rec.State != StateIdle || rec.Pending != "" {
		t.Errorf("state = %q pending = %q after edit", rec.State, rec.Pending)
	}
}

func TestParamsUnknownNamePrompt(t *testing.T) {
	rec := NewRecord("u1")

	out := Step(rec, command(CmdParams, "banana"))
	if !hasReply(out, "params_invalid") {
		t.Errorf("replies = %v", replyKeys(out))
	}
	if rec.State != StateIdle {
		t.Errorf("state = %q", rec.State)
	}
}

func TestParamsUnknownNameMessageConsistent(t *testing.T) {
	rec := NewRecord("u1")

	oneArg := Step(rec, command(CmdParams, "banana"))
	twoArg := Step(rec, command(CmdParams, "banana", "1"))

	if !hasReply(oneArg, "params_invalid") || !hasReply(twoArg, "params_invalid") {
		t.Fatalf("replies = %v / %v", replyKeys(oneArg), replyKeys(twoArg))
	}
	// Both paths must carry the same constraint text.
	if oneArg.Replies[0].Args[0] != twoArg.Replies[0].Args[0] {
		t.Errorf("constraint text differs: %v vs %v", oneArg.Replies[0].Args[0], twoArg.Replies[0].Args[0])
	}
}

func TestChatRequiresCredential(t *testing.T) {
	rec := NewRecord("u1")

	out := Step(rec, text("hello"))
	if out.Kind != ActNone {
		t.Errorf("kind = %v, want ActNone", out.Kind)
	}
	if !hasReply(out, "need_credential") {
		t.Errorf("replies = %v", replyKeys(out))
	}

	rec.Credential = "sk-test"
	out = Step(rec, text("hello"))
	if out.Kind != ActChat || out.Text != "hello" {
		t.Errorf("kind = %v text = %q", out.Kind, out.Text)
	}
}

func TestUnknownCommandShowsHelp(t *testing.T) {
	rec := NewRecord("u1")

	out := Step(rec, command("frobnicate"))
	if !hasReply(out, "help_message") {
		t.Errorf("replies = %v", replyKeys(out))
	}
	if rec.State != StateIdle {
		t.Errorf("state = %q changed by unknown command", rec.State)
	}
}

func TestHelpDoesNotChangeState(t *testing.T) {
	rec := NewRecord("u1")
	rec.State = StateAwaitingLanguage

	out := Step(rec, command(CmdHelp))
	if !hasReply(out, "help_message") {
		t.Errorf("replies = %v", replyKeys(out))
	}
	if rec.State != StateAwaitingLanguage {
		t.Errorf("help changed state to %q", rec.State)
	}
}
