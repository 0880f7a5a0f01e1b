// Package display implements the display-side relay peer.
//
// The Client joins its session as the display role, routes controller
// commands (navigate, click, run script) to the rendering Surface, and
// hosts the automation engine: action lists arrive from an
// ActionSource on join and on push notifications, and engine progress
// flows back to the controller as action-triggered events and log
// lines. Connections that drop are redialled, and each new connection
// re-issues the join with the same session key.
package display
