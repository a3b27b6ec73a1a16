package sampler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"hostprobe-agent/internal/model"
)

const cannedTopDump = `top - 14:01:22 up 10 days,  3:42,  2 users,  load average: 0.52, 0.58, 0.59
Tasks: 293 total,   1 running, 292 sleeping,   0 stopped,   0 zombie
%Cpu(s):  3.4 us,  1.2 sy,  0.0 ni, 95.1 id,  0.2 wa,  0.0 hi,  0.1 si,  0.0 st
MiB Mem :  15852.9 total,  13007.2 free,   1649.1 used,   196.7 buff/cache
MiB Swap:   2048.0 total,   2048.0 free,      0.0 used.  13910.3 avail Mem

    PID USER      PR  NI    VIRT    RES    SHR S  %CPU  %MEM     TIME+ COMMAND
   1423 www-data  20   0  142868  12504   5456 S   5.9   0.1   3:22.01 nginx: worker process
   2901 mysql     20   0 2585688 414336  37120 S   2.0   2.6  55:11.72 /usr/sbin/mysqld
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCommandSamplerSnapshot(t *testing.T) {
	var sortKeys []string
	s := NewCommandSampler("top", testLogger())
	s.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != "top" {
			t.Errorf("command = %q, want top", name)
		}
		sortKeys = append(sortKeys, args[len(args)-1])
		return []byte(cannedTopDump), nil
	}

	snap, err := s.Snapshot(context.Background(), 5)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if len(sortKeys) != 2 || sortKeys[0] != "%CPU" || sortKeys[1] != "%MEM" {
		t.Errorf("sort keys = %v, want [%%CPU %%MEM]", sortKeys)
	}
	if snap.CPUUsagePercent != 3.4 {
		t.Errorf("CPUUsagePercent = %v, want 3.4", snap.CPUUsagePercent)
	}
	wantMem := 1649.1 / 15852.9 * 100
	if math.Abs(snap.MemUsagePercent-wantMem) > 1e-9 {
		t.Errorf("MemUsagePercent = %v, want %v", snap.MemUsagePercent, wantMem)
	}

	if len(snap.TopCPU) != 5 || len(snap.TopMem) != 5 {
		t.Fatalf("top lists sized %d/%d, want 5/5", len(snap.TopCPU), len(snap.TopMem))
	}
	if snap.TopCPU[0].Name != "nginx: worker process" || snap.TopCPU[0].MetricValue != 5.9 {
		t.Errorf("TopCPU[0] = %+v", snap.TopCPU[0])
	}
	if snap.TopMem[0].Name != "nginx: worker process" || snap.TopMem[0].MetricValue != 0.1 {
		t.Errorf("TopMem[0] = %+v", snap.TopMem[0])
	}
	for i := 2; i < 5; i++ {
		if snap.TopCPU[i] != model.SentinelSample() {
			t.Errorf("TopCPU[%d] = %+v, want sentinel padding", i, snap.TopCPU[i])
		}
	}
	if snap.Timestamp.IsZero() {
		t.Error("snapshot timestamp not set")
	}
}

func TestCommandSamplerBatchFlags(t *testing.T) {
	s := NewCommandSampler("top", testLogger())
	s.run = func(_ context.Context, _ string, args ...string) ([]byte, error) {
		want := []string{"-b", "-n", "1", "-w", "512", "-c", "-o"}
		if len(args) != len(want)+1 {
			t.Fatalf("args = %v", args)
		}
		for i, a := range want {
			if args[i] != a {
				t.Errorf("args[%d] = %q, want %q", i, args[i], a)
			}
		}
		return []byte(cannedTopDump), nil
	}

	if _, err := s.Snapshot(context.Background(), 5); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
}

func TestCommandSamplerRunFailure(t *testing.T) {
	bang := errors.New("executable file not found")
	s := NewCommandSampler("top", testLogger())
	s.run = func(context.Context, string, ...string) ([]byte, error) {
		return nil, bang
	}

	if _, err := s.Snapshot(context.Background(), 5); !errors.Is(err, bang) {
		t.Fatalf("Snapshot err = %v, want wrapped run failure", err)
	}
}

func TestCommandSamplerEmptyOutput(t *testing.T) {
	s := NewCommandSampler("top", testLogger())
	s.run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte(""), nil
	}

	snap, err := s.Snapshot(context.Background(), 3)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.CPUUsagePercent != 0 || snap.MemUsagePercent != 0 {
		t.Errorf("aggregates = %v/%v, want 0/0", snap.CPUUsagePercent, snap.MemUsagePercent)
	}
	for _, sample := range snap.TopCPU {
		if sample != model.SentinelSample() {
			t.Errorf("expected all-sentinel top list, got %+v", snap.TopCPU)
			break
		}
	}
}
