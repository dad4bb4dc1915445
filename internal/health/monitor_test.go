package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nandahq/agentdir/internal/registry"
)

// flakyAgent is a stub agent endpoint whose health can be toggled.
type flakyAgent struct {
	mu      sync.Mutex
	healthy bool
}

func (f *flakyAgent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.URL.Path != "/api/health" || !f.healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (f *flakyAgent) set(healthy bool) {
	f.mu.Lock()
	f.healthy = healthy
	f.mu.Unlock()
}

type recordingArchiver struct {
	mu       sync.Mutex
	archived []string
	dropped  []string
}

func (a *recordingArchiver) ArchiveAgent(_ context.Context, rec *registry.AgentRecord, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.archived = append(a.archived, rec.AgentID)
	return nil
}

func (a *recordingArchiver) DeleteClient(_ context.Context, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dropped = append(a.dropped, name)
	return nil
}

func TestSweepCounterLifecycle(t *testing.T) {
	agent := &flakyAgent{healthy: true}
	srv := httptest.NewServer(agent)
	defer srv.Close()

	ix := registry.NewIndex(zap.NewNop())
	ix.Register("agentm-001", "https://bridge.example/1", srv.URL)

	m := New(ix, nil, nil, time.Minute, 3, zap.NewNop())
	ctx := context.Background()

	m.Sweep(ctx)
	rec, _ := ix.Get("agentm-001")
	if !rec.Alive || rec.UnresponsiveCount != 0 {
		t.Fatalf("healthy sweep: %+v", rec)
	}

	agent.set(false)
	m.Sweep(ctx)
	m.Sweep(ctx)
	rec, _ = ix.Get("agentm-001")
	if rec.UnresponsiveCount != 2 {
		t.Fatalf("failing sweeps: %+v", rec)
	}

	// Recovery resets the counter.
	agent.set(true)
	m.Sweep(ctx)
	rec, _ = ix.Get("agentm-001")
	if rec.UnresponsiveCount != 0 || !rec.Alive {
		t.Fatalf("recovered sweep: %+v", rec)
	}
}

func TestSweepRetiresManagedAgentAndReassigns(t *testing.T) {
	agent := &flakyAgent{healthy: false}
	srv := httptest.NewServer(agent)
	defer srv.Close()

	ix := registry.NewIndex(zap.NewNop())
	ix.Register("agentm-001", "https://bridge.example/1", srv.URL)
	if _, err := ix.Allocate("alice"); err != nil {
		t.Fatal(err)
	}
	// Spare agent with no API URL is skipped by the sweep but available for
	// reassignment.
	ix.Register("agentm-002", "https://bridge.example/2", "")

	archiver := &recordingArchiver{}
	m := New(ix, archiver, nil, time.Minute, 2, zap.NewNop())
	ctx := context.Background()

	m.Sweep(ctx)
	m.Sweep(ctx)

	if _, ok := ix.Get("agentm-001"); ok {
		t.Fatal("agent should be removed after threshold")
	}
	if len(archiver.archived) != 1 || archiver.archived[0] != "agentm-001" {
		t.Errorf("archived = %v", archiver.archived)
	}
	client, ok := ix.Client("alice")
	if !ok || client.AgentID != "agentm-002" {
		t.Errorf("client after reassignment = %+v", client)
	}
}

func TestSweepRetiresSetupAgentAndDropsClient(t *testing.T) {
	agent := &flakyAgent{healthy: false}
	srv := httptest.NewServer(agent)
	defer srv.Close()

	ix := registry.NewIndex(zap.NewNop())
	ix.Restore(registry.AgentRecord{
		AgentID:    "agents-777",
		AgentURL:   "https://bridge.example/setup",
		APIURL:     srv.URL,
		AssignedTo: "carol",
	})

	archiver := &recordingArchiver{}
	m := New(ix, archiver, nil, time.Minute, 1, zap.NewNop())
	m.Sweep(context.Background())

	if _, ok := ix.Get("agents-777"); ok {
		t.Fatal("setup agent should be removed")
	}
	if _, ok := ix.Client("carol"); ok {
		t.Error("setup agent's client should be dropped")
	}
	if len(archiver.dropped) != 1 || archiver.dropped[0] != "carol" {
		t.Errorf("dropped clients = %v", archiver.dropped)
	}
}

func TestSweepSkipsCommandAgents(t *testing.T) {
	ix := registry.NewIndex(zap.NewNop())
	ix.Register("agentm-cmd", "https://bridge.example/cmd", "cmd://npx?args=-y server")

	m := New(ix, nil, nil, time.Minute, 1, zap.NewNop())
	m.Sweep(context.Background())

	if _, ok := ix.Get("agentm-cmd"); !ok {
		t.Fatal("command-launched agent must not be probed or removed")
	}
}

func TestNewDefaults(t *testing.T) {
	m := New(registry.NewIndex(nil), nil, nil, 0, 0, zap.NewNop())
	if m.Threshold() != DefaultThreshold {
		t.Errorf("threshold = %d", m.Threshold())
	}
}
