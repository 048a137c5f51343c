package transport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSDialer dials core NATS connections for benchmark workers.
// Reconnection is disabled so a dropped connection surfaces as a worker
// error instead of silently skewing the measured rates.
type NATSDialer struct {
	URLs   []string
	Secure bool
	Name   string
}

// Dial connects to the configured servers.
func (d *NATSDialer) Dial() (Conn, error) {
	name := d.Name
	if name == "" {
		name = "pubbench"
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.NoReconnect(),
	}
	if d.Secure {
		opts = append(opts, nats.Secure())
	}

	urls := strings.Join(d.URLs, ",")
	if urls == "" {
		urls = DefaultURL
	}

	nc, err := nats.Connect(urls, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", urls, err)
	}

	return &natsConn{nc: nc}, nil
}

type natsConn struct {
	nc *nats.Conn
}

func (c *natsConn) Publish(subject string, payload []byte) error {
	if err := c.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	return nil
}

func (c *natsConn) Subscribe(subject string) (Subscription, error) {
	sub, err := c.nc.SubscribeSync(subject)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	// Benchmark subscribers must never drop messages client-side.
	if err := sub.SetPendingLimits(-1, -1); err != nil {
		return nil, fmt.Errorf("set pending limits: %w", err)
	}

	return &natsSubscription{sub: sub}, nil
}

func (c *natsConn) Flush(timeout time.Duration) error {
	if err := c.nc.FlushTimeout(timeout); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	return nil
}

func (c *natsConn) Stats() Stats {
	s := c.nc.Stats()

	return Stats{
		InMsgs:   s.InMsgs,
		OutMsgs:  s.OutMsgs,
		InBytes:  s.InBytes,
		OutBytes: s.OutBytes,
	}
}

func (c *natsConn) Close() {
	c.nc.Close()
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s *natsSubscription) Next(timeout time.Duration) (bool, error) {
	_, err := s.sub.NextMsg(timeout)
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) {
			return false, nil
		}

		return false, fmt.Errorf("next message: %w", err)
	}

	return true, nil
}

func (s *natsSubscription) Unsubscribe() error {
	if err := s.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}

	return nil
}
