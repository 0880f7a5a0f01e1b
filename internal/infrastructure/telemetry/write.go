package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSessionEvent records a session pairing change: a role joining
// or dropping for a session key. connected=1/0 makes churn queryable
// with simple aggregations.
func (c *Client) WriteSessionEvent(sessionKey, role string, connected bool) {
	if !c.IsConnected() {
		return
	}

	value := 0
	if connected {
		value = 1
	}

	point := write.NewPoint(
		"session_events",
		map[string]string{
			"session": sessionKey,
			"role":    role,
		},
		map[string]interface{}{
			"connected": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteActionTriggered records an action completing on a display.
func (c *Client) WriteActionTriggered(sessionKey, actionID string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"action_triggers",
		map[string]string{
			"session":   sessionKey,
			"action_id": actionID,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDisplayDimensions records a display's reported viewport size.
func (c *Client) WriteDisplayDimensions(sessionKey string, width, height int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"display_dimensions",
		map[string]string{
			"session": sessionKey,
		},
		map[string]interface{}{
			"width":  width,
			"height": height,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom measurement with full control over tags
// and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
