// Package engine implements the display-side action scheduler.
//
// Given a loaded set of action definitions, the engine arms step 0 of
// every active action and walks each sequence: a step's trigger
// (immediate, or an element becoming visible in the environment)
// releases it, an optional delay passes, its effect dispatches, and
// the next step arms. Element-visible triggers may carry a timeout;
// timing out skips the effect and advances the sequence.
//
// The central guarantee is exactly-once settlement. A condition
// watcher and its timeout timer race by design, and either ordering
// must produce one outcome. Each step key transitions once from
// pending to settled under the engine mutex; the loser of the race
// finds the key settled and stands down. Loading a new set or
// disabling the engine cancels everything outstanding, and a
// generation counter neutralises timer callbacks already in flight.
package engine
