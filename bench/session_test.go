package bench

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSessionRunsBothPasses(t *testing.T) {
	var out strings.Builder

	s := &Session{
		Plan:   testPlan(200, 8, 2, 1),
		Dialer: &fakeDialer{broker: newFakeBroker()},
		Logger: testLogger(),
		Out:    &out,
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("session failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Starting benchmark",
		"Memory usage",
		"Pub Only stats:",
		"Pub/Sub stats:",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestSessionCSVOutput(t *testing.T) {
	var out strings.Builder

	plan := testPlan(200, 8, 1, 1)
	plan.CSV = true

	s := &Session{
		Plan:   plan,
		Dialer: &fakeDialer{broker: newFakeBroker()},
		Logger: testLogger(),
		Out:    &out,
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("session failed: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "RunID,ClientID,MsgCount") {
		t.Errorf("output missing the CSV header:\n%s", got)
	}
	if strings.Contains(got, "stats:") {
		t.Errorf("CSV mode rendered a text report:\n%s", got)
	}
}

func TestSessionAbortsOnPassError(t *testing.T) {
	var out strings.Builder

	dialErr := errors.New("connection refused")
	s := &Session{
		Plan:   testPlan(200, 8, 1, 1),
		Dialer: &fakeDialer{broker: newFakeBroker(), dialErr: dialErr},
		Logger: testLogger(),
		Out:    &out,
	}

	err := s.Run(context.Background())
	if err == nil {
		t.Fatal("expected the session to fail when no worker can connect")
	}
	if !errors.Is(err, dialErr) {
		t.Errorf("error %v does not wrap the dial error", err)
	}
	if !strings.Contains(err.Error(), "Pub Only pass") {
		t.Errorf("error %v is not attributed to the first pass", err)
	}
}
