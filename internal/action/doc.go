// Package action defines automation action definitions and their
// persistence.
//
// An action is an ordered sequence of steps bound to a session key.
// Each step pairs a trigger (when to fire) with an effect (what to ask
// the display to do) and an optional delay between the trigger settling
// and the effect dispatching. Actions may chain: a single-step action
// can name a successor that arms when the first completes.
//
// The package provides:
//   - Definition, Step, Trigger, Effect: the action model, with closed
//     tagged unions decoded strictly at the JSON boundary
//   - Repository: SQLite persistence, normalising legacy single
//     trigger/effect rows into one-step sequences at scan time
//   - Store: a cached, thread-safe front over the repository
//   - Validate: structural and limit validation for definitions
package action
