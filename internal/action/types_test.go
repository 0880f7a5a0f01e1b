package action

import (
	"encoding/json"
	"errors"
	"testing"
)

// ─── Trigger decoding ───

func TestTriggerUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		check   func(t *testing.T, tr Trigger)
	}{
		{
			name:  "immediate",
			input: `{"kind":"immediate"}`,
			check: func(t *testing.T, tr Trigger) {
				if tr.Kind != TriggerImmediate {
					t.Errorf("Kind = %q, want immediate", tr.Kind)
				}
			},
		},
		{
			name:  "element visible with timeout",
			input: `{"kind":"element-visible","selector":"#submit","element_kind":"button","timeout_seconds":2.5}`,
			check: func(t *testing.T, tr Trigger) {
				if tr.Selector != "#submit" {
					t.Errorf("Selector = %q, want #submit", tr.Selector)
				}
				if tr.ElementKind != "button" {
					t.Errorf("ElementKind = %q, want button", tr.ElementKind)
				}
				if tr.TimeoutSeconds != 2.5 {
					t.Errorf("TimeoutSeconds = %v, want 2.5", tr.TimeoutSeconds)
				}
			},
		},
		{
			name:  "element visible without timeout waits indefinitely",
			input: `{"kind":"element-visible","selector":".ready"}`,
			check: func(t *testing.T, tr Trigger) {
				if tr.TimeoutSeconds != 0 {
					t.Errorf("TimeoutSeconds = %v, want 0", tr.TimeoutSeconds)
				}
			},
		},
		{
			name:    "unknown kind rejected",
			input:   `{"kind":"on-scroll"}`,
			wantErr: ErrInvalidTrigger,
		},
		{
			name:    "empty kind rejected",
			input:   `{}`,
			wantErr: ErrInvalidTrigger,
		},
		{
			name:    "element visible without selector rejected",
			input:   `{"kind":"element-visible","timeout_seconds":5}`,
			wantErr: ErrInvalidTrigger,
		},
		{
			name:    "negative timeout rejected",
			input:   `{"kind":"element-visible","selector":"#x","timeout_seconds":-1}`,
			wantErr: ErrInvalidTrigger,
		},
		{
			name:    "immediate with selector rejected",
			input:   `{"kind":"immediate","selector":"#x"}`,
			wantErr: ErrInvalidTrigger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tr Trigger
			err := json.Unmarshal([]byte(tt.input), &tr)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, tr)
			}
		})
	}
}

// ─── Effect decoding ───

func TestEffectUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		check   func(t *testing.T, e Effect)
	}{
		{
			name:  "click",
			input: `{"kind":"click","x":120,"y":480}`,
			check: func(t *testing.T, e Effect) {
				if e.X != 120 || e.Y != 480 {
					t.Errorf("coordinates = (%d,%d), want (120,480)", e.X, e.Y)
				}
			},
		},
		{
			name:  "navigate",
			input: `{"kind":"navigate","url":"https://example.com/menu"}`,
			check: func(t *testing.T, e Effect) {
				if e.URL != "https://example.com/menu" {
					t.Errorf("URL = %q", e.URL)
				}
			},
		},
		{
			name:  "run script",
			input: `{"kind":"run-script","code":"document.title"}`,
			check: func(t *testing.T, e Effect) {
				if e.Code != "document.title" {
					t.Errorf("Code = %q", e.Code)
				}
			},
		},
		{
			name:    "unknown kind rejected",
			input:   `{"kind":"scroll"}`,
			wantErr: ErrInvalidEffect,
		},
		{
			name:    "navigate without url rejected",
			input:   `{"kind":"navigate"}`,
			wantErr: ErrInvalidEffect,
		},
		{
			name:    "run script without code rejected",
			input:   `{"kind":"run-script"}`,
			wantErr: ErrInvalidEffect,
		},
		{
			name:    "click carrying url rejected",
			input:   `{"kind":"click","x":1,"y":1,"url":"https://x"}`,
			wantErr: ErrInvalidEffect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Effect
			err := json.Unmarshal([]byte(tt.input), &e)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, e)
			}
		})
	}
}

// ─── Definition ───

func TestDefinitionDeepCopy(t *testing.T) {
	next := "next-id"
	original := &Definition{
		ID:         "a1",
		SessionKey: "kiosk-1",
		Name:       "open menu",
		Steps: []Step{
			{
				Trigger: Trigger{Kind: TriggerElementVisible, Selector: "#menu"},
				Effect:  Effect{Kind: EffectClick, X: 10, Y: 20},
			},
		},
		NextActionID: &next,
	}

	cpy := original.DeepCopy()

	cpy.Steps[0].Trigger.Selector = "#other"
	*cpy.NextActionID = "changed"

	if original.Steps[0].Trigger.Selector != "#menu" {
		t.Error("DeepCopy shares step storage with original")
	}
	if *original.NextActionID != "next-id" {
		t.Error("DeepCopy shares NextActionID with original")
	}
}

func TestDefinitionDeepCopyNil(t *testing.T) {
	var d *Definition
	if d.DeepCopy() != nil {
		t.Error("DeepCopy of nil should be nil")
	}
}

func TestGenerateIDUnique(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Errorf("GenerateID produced %q and %q", a, b)
	}
}
