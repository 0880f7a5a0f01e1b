// Package relay pairs one controller and one display per named session
// and forwards messages between them over persistent channels.
//
// The Hub is the state machine: a join claims a role in a session,
// commands forward controller → display, events forward display →
// controller, and a disconnect notifies the surviving peer. Controller
// joins require the session to exist (a display must have joined the
// key at least once); display joins create the session. Rebinding
// after a reconnect is an ordinary join, and a disconnect from a
// connection that was already superseded produces no notification.
//
// WSChannel is the WebSocket transport behind the Channel interface.
// Per-connection write ordering gives FIFO delivery from one sender to
// its peer; nothing is guaranteed across senders.
package relay
