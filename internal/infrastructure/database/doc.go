// Package database provides SQLite connection management and embedded
// schema migrations for the action directory store.
//
// Session and relay state is deliberately in-memory and never touches
// this package; only action definitions are persisted.
package database
