package repository

// MessageBus is the outbound event seam. The NATS transport provides the
// production implementation; tests substitute their own.
type MessageBus interface {
	Publish(topic string, data []byte) error
}
