// Package health runs the periodic agent liveness sweep. Each registered
// agent with an API URL is probed on /api/health; repeated failures past the
// unresponsive threshold get the agent archived and its client reallocated.
package health

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nandahq/agentdir/internal/events"
	"github.com/nandahq/agentdir/internal/registry"
)

// DefaultThreshold is the number of consecutive failed probes before an
// agent is removed.
const DefaultThreshold = 12

// Archiver persists removed agents for the audit trail. Satisfied by
// store.Store; optional.
type Archiver interface {
	ArchiveAgent(ctx context.Context, rec *registry.AgentRecord, reason string) error
	DeleteClient(ctx context.Context, name string) error
}

// Monitor probes agents on a fixed interval.
type Monitor struct {
	index     *registry.Index
	archiver  Archiver
	bus       *events.Bus
	client    *http.Client
	interval  time.Duration
	threshold int
	log       *zap.Logger
}

// New builds a health monitor. Archiver and bus may be nil; probing then
// only mutates the in-memory index. A zero threshold falls back to
// DefaultThreshold.
func New(index *registry.Index, archiver Archiver, bus *events.Bus, interval time.Duration, threshold int, log *zap.Logger) *Monitor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Monitor{
		index:     index,
		archiver:  archiver,
		bus:       bus,
		client:    &http.Client{Timeout: 5 * time.Second},
		interval:  interval,
		threshold: threshold,
		log:       log,
	}
}

// Run sweeps until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep probes every agent once and handles threshold breaches.
func (m *Monitor) Sweep(ctx context.Context) {
	agents := m.index.Snapshot()
	alive := make(map[string]bool, len(agents))

	for _, rec := range agents {
		if rec.APIURL == "" || strings.HasPrefix(rec.APIURL, "cmd://") {
			continue
		}

		healthy := m.probe(ctx, rec.APIURL)
		count := m.index.SetHealth(rec.AgentID, healthy)
		alive[rec.AgentID] = healthy

		if healthy {
			if rec.UnresponsiveCount > 0 {
				m.log.Info("agent healthy again",
					zap.String("agent_id", rec.AgentID))
			}
			continue
		}

		m.log.Warn("agent unresponsive",
			zap.String("agent_id", rec.AgentID),
			zap.Int("count", count))
		if count >= m.threshold {
			m.retire(ctx, rec.AgentID)
		}
	}

	if m.bus != nil {
		if err := m.bus.PublishHealthSnapshot(ctx, alive); err != nil {
			m.log.Warn("health snapshot publish failed", zap.Error(err))
		}
	}
}

// probe reports whether the agent's health endpoint answered 200.
func (m *Monitor) probe(ctx context.Context, apiURL string) bool {
	url := strings.TrimSuffix(apiURL, "/") + "/api/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// retire removes an agent that crossed the threshold: archive it, drop it
// from the index, and deal with its client. Managed agents get their client
// reassigned to another pooled agent; setup agents take their client down
// with them.
func (m *Monitor) retire(ctx context.Context, agentID string) {
	rec, ok := m.index.Remove(agentID)
	if !ok {
		return
	}
	m.log.Warn("agent reached unresponsive threshold, removing",
		zap.String("agent_id", agentID),
		zap.Int("count", rec.UnresponsiveCount))

	if m.archiver != nil {
		if err := m.archiver.ArchiveAgent(ctx, rec, "unresponsive_threshold_reached"); err != nil {
			m.log.Error("archive failed", zap.String("agent_id", agentID), zap.Error(err))
		}
	}

	if client := rec.AssignedTo; client != "" {
		switch {
		case registry.IsSetup(agentID):
			m.index.DropClient(client)
			if m.archiver != nil {
				if err := m.archiver.DeleteClient(ctx, client); err != nil {
					m.log.Warn("client delete failed", zap.String("client", client), zap.Error(err))
				}
			}
		case registry.IsManaged(agentID):
			if newID, err := m.index.Reassign(client); err != nil {
				m.log.Warn("client reassignment failed",
					zap.String("client", client), zap.Error(err))
			} else {
				m.log.Info("client reassigned after agent removal",
					zap.String("client", client),
					zap.String("agent_id", newID))
			}
		}
	}

	if m.bus != nil {
		ev := &events.SyncEvent{
			Source:  "health",
			AgentID: agentID,
			Action:  events.ActionRemoved,
		}
		if err := m.bus.Publish(ctx, ev); err != nil {
			m.log.Warn("removal event publish failed", zap.Error(err))
		}
	}
}

// Threshold returns the configured removal threshold.
func (m *Monitor) Threshold() int {
	return m.threshold
}

// String describes the monitor's schedule for startup logs.
func (m *Monitor) String() string {
	return fmt.Sprintf("health monitor every %s, threshold %d", m.interval, m.threshold)
}
