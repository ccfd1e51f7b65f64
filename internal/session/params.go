package session

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Params maps recognized option names to values. Records store only the
// user's overrides; Merged layers them over the defaults.
type Params map[string]interface{}

// DefaultParams returns the built-in completion parameters.
func DefaultParams() Params {
	return Params{
		"model":             "gpt-3.5-turbo",
		"temperature":       0.7,
		"max_tokens":        1000,
		"top_p":             1.0,
		"frequency_penalty": 0.0,
		"presence_penalty":  0.0,
	}
}

// ValidationError reports a violated constraint on user input. The text is
// shown to the user inside a localized wrapper.
type ValidationError struct {
	Constraint string
}

func (e *ValidationError) Error() string { return e.Constraint }

// Set validates and stores one option. The value arrives as command-argument
// text and is coerced to the option's type. Unknown names and out-of-range
// values return a *ValidationError and leave the map unchanged.
func (p Params) Set(name, value string) error {
	switch name {
	case "model":
		if value == "" {
			return &ValidationError{"model must be a non-empty string"}
		}
		p[name] = value
	case "temperature":
		return p.setFloat(name, value, 0, 2)
	case "top_p":
		return p.setFloat(name, value, 0, 1)
	case "frequency_penalty", "presence_penalty":
		return p.setFloat(name, value, -2, 2)
	case "max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return &ValidationError{"max_tokens must be a positive integer"}
		}
		p[name] = n
	default:
		return unknownParam(name)
	}
	return nil
}

func unknownParam(name string) *ValidationError {
	return &ValidationError{fmt.Sprintf("unknown parameter %q", name)}
}

func (p Params) setFloat(name, value string, lo, hi float64) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < lo || f > hi {
		return &ValidationError{fmt.Sprintf("%s must be a number between %g and %g", name, lo, hi)}
	}
	p[name] = f
	return nil
}

// Merged returns the defaults overlaid with the user's overrides. The copy is
// key-based, so an explicit zero (temperature 0) wins over the default.
func (p Params) Merged() Params {
	merged := DefaultParams()
	for k, v := range p {
		merged[k] = v
	}
	return merged
}

// Render returns the merged parameters as indented JSON for display.
func (p Params) Render() string {
	data, err := json.MarshalIndent(p.Merged(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Known reports whether name is a recognized option.
func (p Params) Known(name string) bool {
	_, ok := DefaultParams()[name]
	return ok
}

// Typed accessors for the completion call. Values may arrive as float64 or
// int depending on whether they round-tripped through JSON.

func (p Params) Model() string {
	if s, ok := p.Merged()["model"].(string); ok {
		return s
	}
	return "gpt-3.5-turbo"
}

func (p Params) Temperature() float32 { return float32(p.number("temperature", 0.7)) }
func (p Params) TopP() float32        { return float32(p.number("top_p", 1.0)) }
func (p Params) FrequencyPenalty() float32 {
	return float32(p.number("frequency_penalty", 0))
}
func (p Params) PresencePenalty() float32 {
	return float32(p.number("presence_penalty", 0))
}

func (p Params) MaxTokens() int { return int(p.number("max_tokens", 1000)) }

func (p Params) number(name string, def float64) float64 {
	switch v := p.Merged()[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err == nil {
			return f
		}
	}
	return def
}
