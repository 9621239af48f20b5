// Package mqtt mirrors discovered ESP-DMX nodes to an MQTT broker.
//
// Each node reply is published as retained JSON on <prefix>/nodes/<ip>.
// The bridge announces itself on <prefix>/bridge/state with "online", and
// the broker publishes the will "offline" if the connection is lost.
package mqtt
