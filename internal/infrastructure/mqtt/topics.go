package mqtt

// Topic layout published by Farsign Core:
//
//	farsign/system/status                  retained service status
//	farsign/session/{key}/status           retained session pairing state
//	farsign/session/{key}/action-triggered action completion events
//	farsign/system/sessions-cleared        admin clear-all events
//
// Session keys are already normalised (lowercase, trimmed) before they
// reach this package, so they are safe as topic segments.

// Topics builds the farsign topic hierarchy.
type Topics struct{}

const topicPrefix = "farsign"

// SystemStatus is the retained online/offline status topic.
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}

// SessionStatus is the retained pairing-state topic for one session.
func (Topics) SessionStatus(key string) string {
	return topicPrefix + "/session/" + key + "/status"
}

// ActionTriggered is the per-session action completion event topic.
func (Topics) ActionTriggered(key string) string {
	return topicPrefix + "/session/" + key + "/action-triggered"
}

// SessionsCleared is the admin clear-all event topic.
func (Topics) SessionsCleared() string {
	return topicPrefix + "/system/sessions-cleared"
}
