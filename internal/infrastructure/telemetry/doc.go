// Package telemetry records relay activity in InfluxDB.
//
// Session pairing churn, action trigger counts, and display viewport
// sizes are written as batched, non-blocking points. Telemetry is
// optional; when disabled or unreachable the relay runs unaffected.
package telemetry
