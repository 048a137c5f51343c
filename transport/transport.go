// Package transport defines the messaging-client contract the benchmark
// core drives, plus the NATS implementation of it. Each benchmark worker
// owns exactly one Conn; connections are never shared across goroutines.
package transport

import "time"

// DefaultURL is the server URL used when none is configured.
const DefaultURL = "nats://127.0.0.1:4222"

// Stats is an opaque snapshot of a connection's transport-level counters,
// taken when a worker finishes and attached to its timing sample.
type Stats struct {
	InMsgs   uint64
	OutMsgs  uint64
	InBytes  uint64
	OutBytes uint64
}

// Dialer establishes a fresh connection for one worker.
type Dialer interface {
	Dial() (Conn, error)
}

// Conn is a single worker's connection to the messaging system.
type Conn interface {
	// Publish sends payload on the given subject.
	Publish(subject string, payload []byte) error

	// Subscribe creates a synchronous subscription on the given subject.
	Subscribe(subject string) (Subscription, error)

	// Flush forces delivery of buffered sends, waiting at most timeout.
	Flush(timeout time.Duration) error

	// Stats returns a snapshot of the connection's byte/message counters.
	Stats() Stats

	// Close releases the connection.
	Close()
}

// Subscription is a synchronous subscription owned by one subscriber worker.
type Subscription interface {
	// Next waits up to timeout for the next message. It returns
	// (false, nil) when the timeout expires without a message; a
	// timeout is not an error.
	Next(timeout time.Duration) (bool, error)

	// Unsubscribe removes the subscription.
	Unsubscribe() error
}
