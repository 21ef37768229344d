package metrics

import (
	"bytes"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rewired-gh/botia5m/internal/logger"
)

// syncBuffer is written by the server goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// gathered returns the value of the named metric whose labels match, or -1.
func gathered(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if !match {
				continue
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := m.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	return -1
}

func TestServeStarts(t *testing.T) {
	srv := Serve("127.0.0.1:0", logger.Nop())
	defer srv.Close()
	if srv.Handler == nil {
		t.Fatal("Expected handler to be set")
	}
}

func TestCountersIncrement(t *testing.T) {
	CyclesTotal.WithLabelValues("degraded").Inc()
	if got := gathered(t, "botia5m_cycles_total", map[string]string{"mode": "degraded"}); got < 1 {
		t.Errorf("Expected degraded cycles >= 1, got %f", got)
	}

	before := gathered(t, "botia5m_paper_trades_total", map[string]string{"side": "BUY_UP"})
	if before < 0 {
		before = 0
	}
	PaperTradesTotal.WithLabelValues("BUY_UP").Inc()
	if got := gathered(t, "botia5m_paper_trades_total", map[string]string{"side": "BUY_UP"}); got != before+1 {
		t.Errorf("Expected %f, got %f", before+1, got)
	}
}

func TestGauges(t *testing.T) {
	BackoffSeconds.Set(8)
	if got := gathered(t, "botia5m_backoff_seconds", nil); got != 8 {
		t.Errorf("Expected backoff gauge 8, got %f", got)
	}
	ReferencePrice.Set(64000.5)
	if got := gathered(t, "botia5m_reference_price", nil); got != 64000.5 {
		t.Errorf("Expected reference gauge 64000.5, got %f", got)
	}
}

func TestServeLogsBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	out := &syncBuffer{}
	srv := Serve(ln.Addr().String(), logger.NewWriter(out, "info"))
	defer srv.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), "metrics_server_failed") {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	got := out.String()
	if !strings.Contains(got, "metrics_server_failed") || !strings.Contains(got, ln.Addr().String()) {
		t.Errorf("Expected bind failure to be logged, got %q", got)
	}
}

func TestServeCloseIsQuiet(t *testing.T) {
	out := &syncBuffer{}
	srv := Serve("127.0.0.1:0", logger.NewWriter(out, "info"))
	time.Sleep(50 * time.Millisecond)
	if err := srv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := out.String(); got != "" {
		t.Errorf("Expected no log output on close, got %q", got)
	}
}
