package interfaces

// EventPublisher delivers account events to an external broker. Publish may
// block on network I/O, so callers on mutation paths should invoke it off
// the hot path.
type EventPublisher interface {
	Publish(topic string, event any) error
	Close() error
}
