package sampler

import (
	"context"
	"errors"
	"testing"
	"time"

	"hostprobe-agent/internal/model"
)

type fakeProcess struct {
	name    string
	cpu     float64
	mem     float32
	nameErr error
	cpuErr  error
	memErr  error

	cpuCalls int
}

func (p *fakeProcess) NameWithContext(context.Context) (string, error) {
	return p.name, p.nameErr
}

func (p *fakeProcess) PercentWithContext(context.Context, time.Duration) (float64, error) {
	p.cpuCalls++
	if p.cpuErr != nil {
		return 0, p.cpuErr
	}
	return p.cpu, nil
}

func (p *fakeProcess) MemoryPercentWithContext(context.Context) (float32, error) {
	if p.memErr != nil {
		return 0, p.memErr
	}
	return p.mem, nil
}

func fixedEnumerator(procs ...*fakeProcess) enumerator {
	return func(context.Context) ([]hostProcess, error) {
		out := make([]hostProcess, len(procs))
		for i, p := range procs {
			out[i] = p
		}
		return out, nil
	}
}

func newDirectWithProcs(twoPass bool, procs ...*fakeProcess) *DirectSampler {
	s := NewDirectSampler(time.Millisecond, time.Millisecond, twoPass, testLogger())
	s.enumerate = fixedEnumerator(procs...)
	return s
}

func TestTopNByReadFailures(t *testing.T) {
	denied := errors.New("permission denied")
	vanished := errors.New("no such process")

	tests := []struct {
		name   string
		metric Metric
		procs  []*fakeProcess
	}{
		{
			name:   "process vanished before name read",
			metric: MetricCPU,
			procs: []*fakeProcess{
				{name: "nginx", cpu: 5.0},
				{nameErr: vanished},
				{name: "redis", cpu: 1.0},
			},
		},
		{
			name:   "cpu read denied",
			metric: MetricCPU,
			procs: []*fakeProcess{
				{name: "nginx", cpu: 5.0},
				{name: "guarded", cpuErr: denied},
				{name: "redis", cpu: 1.0},
			},
		},
		{
			name:   "memory read denied",
			metric: MetricMemory,
			procs: []*fakeProcess{
				{name: "nginx", mem: 5.0},
				{name: "guarded", memErr: denied},
				{name: "redis", mem: 1.0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newDirectWithProcs(false, tt.procs...)

			got, err := s.TopNBy(context.Background(), tt.metric, 3)
			if err != nil {
				t.Fatalf("a single unreadable process must not abort the scan: %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("got %d samples, want 3", len(got))
			}
			if got[0].Name != "nginx" || got[0].MetricValue != 5.0 {
				t.Errorf("got[0] = %+v, want {nginx 5}", got[0])
			}
			if got[1].Name != "redis" || got[1].MetricValue != 1.0 {
				t.Errorf("got[1] = %+v, want {redis 1}", got[1])
			}
			if got[2] != model.SentinelSample() {
				t.Errorf("got[2] = %+v, want the failed slot to rank as sentinel", got[2])
			}
		})
	}
}

func TestTopNByEnumerationFailure(t *testing.T) {
	bang := errors.New("proc not mounted")
	s := NewDirectSampler(time.Millisecond, time.Millisecond, false, testLogger())
	s.enumerate = func(context.Context) ([]hostProcess, error) {
		return nil, bang
	}

	if _, err := s.TopNBy(context.Background(), MetricCPU, 5); !errors.Is(err, bang) {
		t.Fatalf("TopNBy err = %v, want wrapped enumeration failure", err)
	}
}

func TestTopNByBlankName(t *testing.T) {
	s := newDirectWithProcs(false, &fakeProcess{name: "", cpu: 2.0})

	got, err := s.TopNBy(context.Background(), MetricCPU, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Name != model.SentinelName || got[0].MetricValue != 2.0 {
		t.Errorf("got[0] = %+v, want blank name replaced by sentinel", got[0])
	}
}

func TestTopNByPassCounts(t *testing.T) {
	single := &fakeProcess{name: "a", cpu: 1.0}
	s := newDirectWithProcs(false, single)
	if _, err := s.TopNBy(context.Background(), MetricCPU, 1); err != nil {
		t.Fatal(err)
	}
	if single.cpuCalls != 1 {
		t.Errorf("single-pass made %d cpu reads, want 1", single.cpuCalls)
	}

	double := &fakeProcess{name: "a", cpu: 1.0}
	s = newDirectWithProcs(true, double)
	if _, err := s.TopNBy(context.Background(), MetricCPU, 1); err != nil {
		t.Fatal(err)
	}
	if double.cpuCalls != 2 {
		t.Errorf("two-pass made %d cpu reads, want baseline plus re-read", double.cpuCalls)
	}

	// the baseline pass is a CPU concern only
	mem := &fakeProcess{name: "a", mem: 1.0}
	s = newDirectWithProcs(true, mem)
	if _, err := s.TopNBy(context.Background(), MetricMemory, 1); err != nil {
		t.Fatal(err)
	}
	if mem.cpuCalls != 0 {
		t.Errorf("memory ranking made %d cpu reads, want 0", mem.cpuCalls)
	}
}
