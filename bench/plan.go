// Package bench implements the benchmark core: workers, pacing, phase
// coordination, and the session driver that composes benchmark passes.
package bench

import (
	"fmt"
	"strings"

	"github.com/magiconair/properties"
	"github.com/nats-io/nuid"

	"github.com/weiihann/pubbench/transport"
)

// Plan defaults, matching the classic NATS bench tools.
const (
	DefaultMsgs = 100_000
	DefaultSize = 128
	DefaultPubs = 1
	DefaultSubs = 0
)

// Plan describes one benchmark session. It is immutable for the duration
// of a session; construct it from CLI flags or a properties file and
// validate it before the core starts.
type Plan struct {
	Msgs    int      // total messages to publish, split across publishers
	Size    int      // payload size in bytes (0 means no payload)
	Pubs    int      // number of concurrent publishers
	Subs    int      // number of concurrent subscribers
	Secure  bool     // require TLS on connections
	URLs    []string // server URLs
	Subject string   // subject to publish/subscribe on
	CSV     bool     // render results as CSV instead of a text report
}

// DefaultPlan returns a Plan with the standard defaults and a freshly
// generated unique subject.
func DefaultPlan() Plan {
	return Plan{
		Msgs:    DefaultMsgs,
		Size:    DefaultSize,
		Pubs:    DefaultPubs,
		Subs:    DefaultSubs,
		URLs:    []string{transport.DefaultURL},
		Subject: nuid.Next(),
	}
}

// Validate checks the plan for configuration errors. A configuration
// error is fatal and aborts before any run starts.
func (p Plan) Validate() error {
	if p.Msgs <= 0 {
		return fmt.Errorf("message count must be greater than 0, got %d", p.Msgs)
	}
	if p.Size < 0 {
		return fmt.Errorf("message size must not be negative, got %d", p.Size)
	}
	if p.Pubs < 0 {
		return fmt.Errorf("publisher count must not be negative, got %d", p.Pubs)
	}
	if p.Subs < 0 {
		return fmt.Errorf("subscriber count must not be negative, got %d", p.Subs)
	}
	if p.Pubs == 0 && p.Subs == 0 {
		return fmt.Errorf("need at least one publisher or one subscriber")
	}
	if len(p.URLs) == 0 {
		return fmt.Errorf("at least one server URL is required")
	}
	if strings.TrimSpace(p.Subject) == "" {
		return fmt.Errorf("subject must not be empty")
	}

	return nil
}

// LoadProperties reads a Java-style properties file into a Plan. Keys not
// present fall back to the defaults. Recognized keys:
//
//	bench.nats.servers    comma-separated server URLs
//	bench.nats.secure     require TLS
//	bench.nats.msg.count  total message count
//	bench.nats.msg.size   payload size in bytes
//	bench.nats.pubs       publisher count
//	bench.nats.subs       subscriber count
//	bench.nats.csv        render CSV output
//	bench.nats.subject    subject (default: generated unique id)
func LoadProperties(path string) (Plan, error) {
	props, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return Plan{}, fmt.Errorf("load properties %s: %w", path, err)
	}

	plan := DefaultPlan()
	plan.URLs = splitURLs(props.GetString("bench.nats.servers", transport.DefaultURL))
	plan.Secure = props.GetBool("bench.nats.secure", false)
	plan.Msgs = props.GetInt("bench.nats.msg.count", plan.Msgs)
	plan.Size = props.GetInt("bench.nats.msg.size", plan.Size)
	plan.Pubs = props.GetInt("bench.nats.pubs", plan.Pubs)
	plan.Subs = props.GetInt("bench.nats.subs", plan.Subs)
	plan.CSV = props.GetBool("bench.nats.csv", false)
	plan.Subject = props.GetString("bench.nats.subject", plan.Subject)

	return plan, nil
}

func splitURLs(s string) []string {
	parts := strings.Split(s, ",")

	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}

	return urls
}

// splitMessages distributes total messages as evenly as possible across
// workers, assigning any remainder to the last worker.
func splitMessages(total, workers int) []int {
	if workers <= 0 {
		return nil
	}

	counts := make([]int, workers)
	per := total / workers

	for i := range counts {
		counts[i] = per
	}
	counts[workers-1] = total - per*(workers-1)

	return counts
}
