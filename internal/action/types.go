package action

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TriggerKind discriminates the closed set of step triggers.
type TriggerKind string

const (
	// TriggerImmediate fires the step as soon as it is scheduled.
	TriggerImmediate TriggerKind = "immediate"

	// TriggerElementVisible fires when an element matching the selector
	// is present and visible in the display's document.
	TriggerElementVisible TriggerKind = "element-visible"
)

// Trigger is the condition that releases a step for execution.
//
// It is a closed tagged union: the Kind field selects which of the
// remaining fields are meaningful. Unknown kinds are rejected at the
// JSON boundary, never branched on deeper in the engine.
type Trigger struct {
	Kind TriggerKind `json:"kind"`

	// Selector and ElementKind narrow the watched element
	// (element-visible only). ElementKind is an optional tag-name hint.
	Selector    string `json:"selector,omitempty"`
	ElementKind string `json:"element_kind,omitempty"`

	// TimeoutSeconds bounds the wait (element-visible only).
	// Zero means wait indefinitely.
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty"`
}

// EffectKind discriminates the closed set of step effects.
type EffectKind string

const (
	// EffectClick simulates a click at display coordinates.
	EffectClick EffectKind = "click"

	// EffectNavigate loads a URL in the display.
	EffectNavigate EffectKind = "navigate"

	// EffectRunScript hands script text to the display environment.
	// The server never evaluates the script itself; sandboxing is the
	// environment's responsibility.
	EffectRunScript EffectKind = "run-script"
)

// Effect is what a step does once its trigger releases it.
type Effect struct {
	Kind EffectKind `json:"kind"`

	// X, Y are display coordinates (click only).
	X int `json:"x,omitempty"`
	Y int `json:"y,omitempty"`

	// URL is the navigation target (navigate only).
	URL string `json:"url,omitempty"`

	// Code is the script text (run-script only).
	Code string `json:"code,omitempty"`
}

// Step is one trigger+effect+delay unit within an ordered action.
// Step order is significant and fixed by index.
type Step struct {
	Trigger Trigger `json:"trigger"`
	Effect  Effect  `json:"effect"`

	// DelaySeconds is the pause between the trigger releasing the step
	// and the effect dispatching. Must be >= 0.
	DelaySeconds float64 `json:"delay_seconds"`
}

// Definition is one action served to a display: an ordered step
// sequence plus metadata. An action with zero steps is legal but never
// fires.
type Definition struct {
	ID          string `json:"id"`
	SessionKey  string `json:"session_key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TargetURL   string `json:"target_url,omitempty"`
	Active      bool   `json:"active"`

	Steps []Step `json:"steps"`

	// NextActionID enables legacy chaining: when set on a single-step
	// action, completing or timing out that step schedules the target
	// action instead of ending the run.
	NextActionID *string `json:"next_action_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates an independent copy of the definition so cached
// records cannot be mutated through returned pointers.
func (d *Definition) DeepCopy() *Definition {
	if d == nil {
		return nil
	}
	cpy := *d
	if d.Steps != nil {
		cpy.Steps = make([]Step, len(d.Steps))
		copy(cpy.Steps, d.Steps)
	}
	if d.NextActionID != nil {
		v := *d.NextActionID
		cpy.NextActionID = &v
	}
	return &cpy
}

// GenerateID returns a new unique action ID.
func GenerateID() string {
	return uuid.NewString()
}

// triggerJSON mirrors Trigger for boundary decoding.
type triggerJSON struct {
	Kind           TriggerKind `json:"kind"`
	Selector       string      `json:"selector,omitempty"`
	ElementKind    string      `json:"element_kind,omitempty"`
	TimeoutSeconds float64     `json:"timeout_seconds,omitempty"`
}

// UnmarshalJSON decodes and structurally validates a trigger. Unknown
// kinds and malformed variants are rejected here, once, at the boundary.
func (t *Trigger) UnmarshalJSON(data []byte) error {
	var raw triggerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case TriggerImmediate:
		if raw.Selector != "" || raw.TimeoutSeconds != 0 {
			return fmt.Errorf("%w: immediate trigger carries element-visible fields", ErrInvalidTrigger)
		}
	case TriggerElementVisible:
		if raw.Selector == "" {
			return fmt.Errorf("%w: element-visible trigger requires a selector", ErrInvalidTrigger)
		}
		if raw.TimeoutSeconds < 0 {
			return fmt.Errorf("%w: timeout_seconds cannot be negative", ErrInvalidTrigger)
		}
	default:
		return fmt.Errorf("%w: unknown trigger kind %q", ErrInvalidTrigger, raw.Kind)
	}

	*t = Trigger(raw)
	return nil
}

// effectJSON mirrors Effect for boundary decoding.
type effectJSON struct {
	Kind EffectKind `json:"kind"`
	X    int        `json:"x,omitempty"`
	Y    int        `json:"y,omitempty"`
	URL  string     `json:"url,omitempty"`
	Code string     `json:"code,omitempty"`
}

// UnmarshalJSON decodes and structurally validates an effect.
func (e *Effect) UnmarshalJSON(data []byte) error {
	var raw effectJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case EffectClick:
		if raw.URL != "" || raw.Code != "" {
			return fmt.Errorf("%w: click effect carries foreign fields", ErrInvalidEffect)
		}
	case EffectNavigate:
		if raw.URL == "" {
			return fmt.Errorf("%w: navigate effect requires a url", ErrInvalidEffect)
		}
	case EffectRunScript:
		if raw.Code == "" {
			return fmt.Errorf("%w: run-script effect requires code", ErrInvalidEffect)
		}
	default:
		return fmt.Errorf("%w: unknown effect kind %q", ErrInvalidEffect, raw.Kind)
	}

	*e = Effect(raw)
	return nil
}
