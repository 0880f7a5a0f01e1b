// Package mqtt publishes relay lifecycle events to an MQTT broker.
//
// The bus is optional and outbound-only: session pairing state is
// published retained per session, action completions and clear-all
// events are published as plain events, and a Last Will message lets
// subscribers detect an unclean shutdown. Nothing received from the
// broker drives the relay.
package mqtt
