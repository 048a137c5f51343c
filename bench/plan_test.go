package bench

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSplitMessages(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		workers int
		want    []int
	}{
		{"even split", 1000, 2, []int{500, 500}},
		{"remainder to last", 10, 3, []int{3, 3, 4}},
		{"single worker", 5, 1, []int{5}},
		{"one each", 7, 7, []int{1, 1, 1, 1, 1, 1, 1}},
		{"fewer messages than workers", 3, 5, []int{0, 0, 0, 0, 3}},
		{"no workers", 10, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitMessages(tt.total, tt.workers)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("splitMessages(%d, %d) = %v, want %v",
					tt.total, tt.workers, got, tt.want)
			}

			sum := 0
			for _, n := range got {
				sum += n
			}
			if tt.workers > 0 && sum != tt.total {
				t.Errorf("split %v sums to %d, want %d", got, sum, tt.total)
			}
		})
	}
}

func TestPlanValidate(t *testing.T) {
	valid := func() Plan { return DefaultPlan() }

	tests := []struct {
		name    string
		mutate  func(*Plan)
		wantErr bool
	}{
		{"defaults", func(*Plan) {}, false},
		{"zero messages", func(p *Plan) { p.Msgs = 0 }, true},
		{"negative messages", func(p *Plan) { p.Msgs = -1 }, true},
		{"zero size", func(p *Plan) { p.Size = 0 }, false},
		{"negative size", func(p *Plan) { p.Size = -1 }, true},
		{"negative pubs", func(p *Plan) { p.Pubs = -1 }, true},
		{"negative subs", func(p *Plan) { p.Subs = -1 }, true},
		{"no workers", func(p *Plan) { p.Pubs, p.Subs = 0, 0 }, true},
		{"subs only", func(p *Plan) { p.Pubs, p.Subs = 0, 2 }, false},
		{"no urls", func(p *Plan) { p.URLs = nil }, true},
		{"blank subject", func(p *Plan) { p.Subject = "  " }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)

			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultPlanSubjects(t *testing.T) {
	a, b := DefaultPlan(), DefaultPlan()

	if a.Subject == "" || b.Subject == "" {
		t.Fatal("default plan has an empty subject")
	}
	if a.Subject == b.Subject {
		t.Errorf("two default plans share subject %q", a.Subject)
	}
}

func TestLoadProperties(t *testing.T) {
	path := writeProperties(t, `
bench.nats.servers=nats://a:4222, nats://b:4222
bench.nats.secure=true
bench.nats.msg.count=5000
bench.nats.msg.size=256
bench.nats.pubs=3
bench.nats.subs=2
bench.nats.csv=true
bench.nats.subject=bench.props
`)

	plan, err := LoadProperties(path)
	if err != nil {
		t.Fatalf("LoadProperties failed: %v", err)
	}

	wantURLs := []string{"nats://a:4222", "nats://b:4222"}
	if !reflect.DeepEqual(plan.URLs, wantURLs) {
		t.Errorf("URLs = %v, want %v", plan.URLs, wantURLs)
	}
	if !plan.Secure {
		t.Error("Secure = false, want true")
	}
	if plan.Msgs != 5000 {
		t.Errorf("Msgs = %d, want 5000", plan.Msgs)
	}
	if plan.Size != 256 {
		t.Errorf("Size = %d, want 256", plan.Size)
	}
	if plan.Pubs != 3 {
		t.Errorf("Pubs = %d, want 3", plan.Pubs)
	}
	if plan.Subs != 2 {
		t.Errorf("Subs = %d, want 2", plan.Subs)
	}
	if !plan.CSV {
		t.Error("CSV = false, want true")
	}
	if plan.Subject != "bench.props" {
		t.Errorf("Subject = %q, want %q", plan.Subject, "bench.props")
	}
}

func TestLoadPropertiesDefaults(t *testing.T) {
	path := writeProperties(t, "bench.nats.msg.count=42\n")

	plan, err := LoadProperties(path)
	if err != nil {
		t.Fatalf("LoadProperties failed: %v", err)
	}

	if plan.Msgs != 42 {
		t.Errorf("Msgs = %d, want 42", plan.Msgs)
	}
	if plan.Size != DefaultSize {
		t.Errorf("Size = %d, want default %d", plan.Size, DefaultSize)
	}
	if plan.Pubs != DefaultPubs {
		t.Errorf("Pubs = %d, want default %d", plan.Pubs, DefaultPubs)
	}
	if plan.Subject == "" {
		t.Error("Subject is empty, want a generated one")
	}
	if plan.Secure || plan.CSV {
		t.Error("Secure and CSV should default to false")
	}
}

func TestLoadPropertiesMissingFile(t *testing.T) {
	if _, err := LoadProperties(filepath.Join(t.TempDir(), "missing.properties")); err == nil {
		t.Fatal("expected an error for a missing properties file")
	}
}

func writeProperties(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bench.properties")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}
