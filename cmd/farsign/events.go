package main

import (
	"github.com/farsign/farsign-core/internal/infrastructure/logging"
	"github.com/farsign/farsign-core/internal/infrastructure/mqtt"
	"github.com/farsign/farsign-core/internal/infrastructure/telemetry"
	"github.com/farsign/farsign-core/internal/session"
)

// eventFanout forwards relay lifecycle events to the external
// integrations. Either client may be nil when that integration is
// disabled; publish failures are logged and never propagate back into
// the relay.
type eventFanout struct {
	mqtt      *mqtt.Client
	telemetry *telemetry.Client
	log       *logging.Logger
}

func (f *eventFanout) SessionJoined(key string, role session.Role) {
	if f.mqtt != nil {
		if err := f.mqtt.PublishSessionStatus(key, string(role), true); err != nil {
			f.log.Warn("failed to publish session status", "session", key, "error", err)
		}
	}
	if f.telemetry != nil {
		f.telemetry.WriteSessionEvent(key, string(role), true)
	}
}

func (f *eventFanout) SessionPeerLost(key string, role session.Role) {
	if f.mqtt != nil {
		if err := f.mqtt.PublishSessionStatus(key, string(role), false); err != nil {
			f.log.Warn("failed to publish session status", "session", key, "error", err)
		}
	}
	if f.telemetry != nil {
		f.telemetry.WriteSessionEvent(key, string(role), false)
	}
}

func (f *eventFanout) ActionTriggered(sessionKey, actionID string) {
	if f.mqtt != nil {
		if err := f.mqtt.PublishActionTriggered(sessionKey, actionID); err != nil {
			f.log.Warn("failed to publish action trigger", "session", sessionKey, "action", actionID, "error", err)
		}
	}
	if f.telemetry != nil {
		f.telemetry.WriteActionTriggered(sessionKey, actionID)
	}
}

func (f *eventFanout) DisplayDimensions(sessionKey string, width, height int) {
	if f.telemetry != nil {
		f.telemetry.WriteDisplayDimensions(sessionKey, width, height)
	}
}

func (f *eventFanout) SessionsCleared(count int) {
	if f.mqtt != nil {
		if err := f.mqtt.PublishSessionsCleared(count); err != nil {
			f.log.Warn("failed to publish sessions-cleared", "error", err)
		}
	}
}
