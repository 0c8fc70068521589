package mqtt

import "errors"

var (
	// ErrNotConnected is returned when publishing on a disconnected client.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when a subscribe operation fails.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidCommand is returned for a set payload that names no action.
	ErrInvalidCommand = errors.New("mqtt: invalid command payload")

	// ErrInvalidTopic is returned for a topic outside the bridge's prefix.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")
)
