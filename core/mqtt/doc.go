// Package mqtt defines the transport port used to broadcast solution packets
// and breakdown notifications. The Paho implementation lives in infra/mqtt.
package mqtt
