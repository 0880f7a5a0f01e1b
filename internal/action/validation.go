package action

import (
	"fmt"
	"strings"
)

// Validation constants.
const (
	maxNameLength       = 100
	maxDescriptionLen   = 500
	maxSteps            = 50
	maxSelectorLength   = 500
	maxURLLength        = 2000
	maxScriptLength     = 65536
	maxDelaySeconds     = 300 // 5 minutes
	maxTimeoutSeconds   = 600 // 10 minutes
	maxSessionKeyLength = 100
)

// Validate performs comprehensive validation on a definition.
// Returns an error describing the first failure found.
func Validate(d *Definition) error {
	if d == nil {
		return ErrInvalid
	}

	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalid)
	}
	if len(d.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalid, maxNameLength)
	}
	if len(d.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalid, maxDescriptionLen)
	}
	if strings.TrimSpace(d.SessionKey) == "" {
		return fmt.Errorf("%w: session_key cannot be empty", ErrInvalid)
	}
	if len(d.SessionKey) > maxSessionKeyLength {
		return fmt.Errorf("%w: session_key exceeds %d characters", ErrInvalid, maxSessionKeyLength)
	}
	if len(d.TargetURL) > maxURLLength {
		return fmt.Errorf("%w: target_url exceeds %d characters", ErrInvalid, maxURLLength)
	}

	// Zero steps is legal; the action simply never fires.
	if len(d.Steps) > maxSteps {
		return fmt.Errorf("%w: exceeds maximum of %d steps", ErrInvalidStep, maxSteps)
	}
	for i, step := range d.Steps {
		if err := ValidateStep(step); err != nil {
			return fmt.Errorf("step[%d]: %w", i, err)
		}
	}

	// Legacy chaining only makes sense on single-step actions.
	if d.NextActionID != nil && len(d.Steps) > 1 {
		return fmt.Errorf("%w: next_action_id requires a single-step action", ErrInvalid)
	}

	return nil
}

// ValidateStep checks one step's trigger, effect, and delay.
func ValidateStep(s Step) error {
	if s.DelaySeconds < 0 {
		return fmt.Errorf("%w: delay_seconds cannot be negative", ErrInvalidStep)
	}
	if s.DelaySeconds > maxDelaySeconds {
		return fmt.Errorf("%w: delay_seconds exceeds %d", ErrInvalidStep, maxDelaySeconds)
	}
	if err := validateTrigger(s.Trigger); err != nil {
		return err
	}
	return validateEffect(s.Effect)
}

func validateTrigger(t Trigger) error {
	switch t.Kind {
	case TriggerImmediate:
		return nil
	case TriggerElementVisible:
		if strings.TrimSpace(t.Selector) == "" {
			return fmt.Errorf("%w: element-visible trigger requires a selector", ErrInvalidTrigger)
		}
		if len(t.Selector) > maxSelectorLength {
			return fmt.Errorf("%w: selector exceeds %d characters", ErrInvalidTrigger, maxSelectorLength)
		}
		if t.TimeoutSeconds < 0 {
			return fmt.Errorf("%w: timeout_seconds cannot be negative", ErrInvalidTrigger)
		}
		if t.TimeoutSeconds > maxTimeoutSeconds {
			return fmt.Errorf("%w: timeout_seconds exceeds %d", ErrInvalidTrigger, maxTimeoutSeconds)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown trigger kind %q", ErrInvalidTrigger, t.Kind)
	}
}

func validateEffect(e Effect) error {
	switch e.Kind {
	case EffectClick:
		return nil
	case EffectNavigate:
		if strings.TrimSpace(e.URL) == "" {
			return fmt.Errorf("%w: navigate effect requires a url", ErrInvalidEffect)
		}
		if len(e.URL) > maxURLLength {
			return fmt.Errorf("%w: url exceeds %d characters", ErrInvalidEffect, maxURLLength)
		}
		return nil
	case EffectRunScript:
		if e.Code == "" {
			return fmt.Errorf("%w: run-script effect requires code", ErrInvalidEffect)
		}
		if len(e.Code) > maxScriptLength {
			return fmt.Errorf("%w: code exceeds %d characters", ErrInvalidEffect, maxScriptLength)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown effect kind %q", ErrInvalidEffect, e.Kind)
	}
}
