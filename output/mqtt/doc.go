// Package mqtt publishes processed readings to an MQTT broker using the
// Eclipse Paho client. Each reading is sent as an output.Envelope on a
// single topic with the configured QoS.
package mqtt
