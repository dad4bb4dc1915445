// Package registry keeps the in-memory agent directory: bridge and API URLs
// per agent, liveness status, and client-to-agent allocations. The index is
// the source of truth at runtime; the Postgres store mirrors it for restarts.
package registry

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Agent ID prefixes. Managed agents are pooled and allocated to clients;
// setup agents belong to a single installation and are never reallocated.
const (
	ManagedPrefix = "agentm"
	SetupPrefix   = "agents"
)

var (
	// ErrAgentNotFound is returned when an id resolves to neither an agent
	// nor a client.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrNoAvailableAgents is returned when allocation finds no unassigned
	// managed agent.
	ErrNoAvailableAgents = errors.New("no available agents")
)

// AgentRecord is one directory entry.
type AgentRecord struct {
	AgentID           string    `json:"agent_id"`
	AgentURL          string    `json:"agent_url"`
	APIURL            string    `json:"api_url"`
	Alive             bool      `json:"alive"`
	AssignedTo        string    `json:"assigned_to,omitempty"`
	LastUpdate        time.Time `json:"last_update"`
	UnresponsiveCount int       `json:"unresponsive_count"`
}

// ClientRecord tracks one client's agent allocation.
type ClientRecord struct {
	Name    string `json:"name"`
	AgentID string `json:"agent_id"`
	APIURL  string `json:"api_url"`
}

// Allocation is the result of assigning an agent to a client.
type Allocation struct {
	AgentID  string `json:"agent_id"`
	AgentURL string `json:"agent_url"`
	APIURL   string `json:"api_url"`
	Existing bool   `json:"existing"`
}

// Index is the in-memory registry. Safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	agents  map[string]*AgentRecord
	clients map[string]*ClientRecord
	pick    func(n int) int
	log     *zap.Logger
}

// NewIndex builds an empty registry index.
func NewIndex(log *zap.Logger) *Index {
	if log == nil {
		log = zap.NewNop()
	}
	return &Index{
		agents:  make(map[string]*AgentRecord),
		clients: make(map[string]*ClientRecord),
		pick:    rand.Intn,
		log:     log,
	}
}

// IsManaged reports whether an agent id belongs to the managed pool.
func IsManaged(agentID string) bool {
	return strings.HasPrefix(agentID, ManagedPrefix)
}

// IsSetup reports whether an agent id belongs to a single installation.
func IsSetup(agentID string) bool {
	return strings.HasPrefix(agentID, SetupPrefix)
}

// Register upserts an agent entry. A re-registration resets liveness and the
// unresponsive counter but keeps any existing client assignment.
func (ix *Index) Register(agentID, agentURL, apiURL string) *AgentRecord {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	rec, ok := ix.agents[agentID]
	if !ok {
		rec = &AgentRecord{AgentID: agentID}
		ix.agents[agentID] = rec
	}
	rec.AgentURL = agentURL
	rec.APIURL = apiURL
	rec.Alive = false
	rec.UnresponsiveCount = 0
	rec.LastUpdate = time.Now()

	ix.log.Info("agent registered",
		zap.String("agent_id", agentID),
		zap.String("agent_url", agentURL))
	out := *rec
	return &out
}

// Restore inserts a previously persisted record without touching its status
// fields. Used when reloading from the store at startup.
func (ix *Index) Restore(rec AgentRecord) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	stored := rec
	ix.agents[rec.AgentID] = &stored
	if rec.AssignedTo != "" {
		ix.clients[rec.AssignedTo] = &ClientRecord{
			Name:    rec.AssignedTo,
			AgentID: rec.AgentID,
			APIURL:  rec.APIURL,
		}
	}
}

// Lookup resolves an id that may be an agent id or a client name.
func (ix *Index) Lookup(id string) (*AgentRecord, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if rec, ok := ix.agents[id]; ok {
		out := *rec
		return &out, nil
	}
	if client, ok := ix.clients[id]; ok {
		if rec, ok := ix.agents[client.AgentID]; ok {
			out := *rec
			return &out, nil
		}
	}
	return nil, ErrAgentNotFound
}

// Get returns an agent record by exact id.
func (ix *Index) Get(agentID string) (*AgentRecord, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.agents[agentID]
	if !ok {
		return nil, false
	}
	out := *rec
	return &out, true
}

// List returns agent id → bridge URL for every registered agent.
func (ix *Index) List() map[string]string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]string, len(ix.agents))
	for id, rec := range ix.agents {
		out[id] = rec.AgentURL
	}
	return out
}

// Snapshot returns a copy of every agent record.
func (ix *Index) Snapshot() []AgentRecord {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]AgentRecord, 0, len(ix.agents))
	for _, rec := range ix.agents {
		out = append(out, *rec)
	}
	return out
}

// Sender returns the client a given agent is assigned to.
func (ix *Index) Sender(agentID string) (string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.agents[agentID]
	if !ok {
		return "", ErrAgentNotFound
	}
	return rec.AssignedTo, nil
}

// Clients returns the names of all allocated clients.
func (ix *Index) Clients() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, 0, len(ix.clients))
	for name := range ix.clients {
		out = append(out, name)
	}
	return out
}

// Client returns a client allocation by name.
func (ix *Index) Client(name string) (*ClientRecord, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	c, ok := ix.clients[name]
	if !ok {
		return nil, false
	}
	out := *c
	return &out, true
}

// Len returns the number of registered agents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.agents)
}
