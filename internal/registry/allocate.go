package registry

import (
	"time"

	"go.uber.org/zap"
)

// Allocate assigns an unassigned managed agent to a client. A client that
// already holds an agent gets its existing allocation back. Selection among
// available agents is random.
func (ix *Index) Allocate(clientName string) (*Allocation, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if client, ok := ix.clients[clientName]; ok {
		agentURL := ""
		if rec, ok := ix.agents[client.AgentID]; ok {
			agentURL = rec.AgentURL
		}
		return &Allocation{
			AgentID:  client.AgentID,
			AgentURL: agentURL,
			APIURL:   client.APIURL,
			Existing: true,
		}, nil
	}

	rec := ix.pickAvailableLocked()
	if rec == nil {
		return nil, ErrNoAvailableAgents
	}

	ix.assignLocked(rec, clientName)
	ix.log.Info("agent allocated",
		zap.String("agent_id", rec.AgentID),
		zap.String("client", clientName))
	return &Allocation{
		AgentID:  rec.AgentID,
		AgentURL: rec.AgentURL,
		APIURL:   rec.APIURL,
	}, nil
}

// Reassign moves a client to a new available managed agent, used after its
// previous agent was removed. Returns the new agent id.
func (ix *Index) Reassign(clientName string) (string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	rec := ix.pickAvailableLocked()
	if rec == nil {
		return "", ErrNoAvailableAgents
	}
	ix.assignLocked(rec, clientName)
	ix.log.Info("client reassigned",
		zap.String("client", clientName),
		zap.String("agent_id", rec.AgentID))
	return rec.AgentID, nil
}

// DropClient removes a client allocation without touching the agent.
func (ix *Index) DropClient(name string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.clients, name)
}

// Remove deletes an agent and returns its final record for archiving.
func (ix *Index) Remove(agentID string) (*AgentRecord, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	rec, ok := ix.agents[agentID]
	if !ok {
		return nil, false
	}
	delete(ix.agents, agentID)
	out := *rec
	return &out, true
}

// SetHealth updates an agent's unresponsive counter and liveness. Returns
// the new counter value, or -1 when the agent is unknown.
func (ix *Index) SetHealth(agentID string, healthy bool) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	rec, ok := ix.agents[agentID]
	if !ok {
		return -1
	}
	if healthy {
		rec.UnresponsiveCount = 0
		rec.Alive = true
	} else {
		rec.UnresponsiveCount++
	}
	rec.LastUpdate = time.Now()
	return rec.UnresponsiveCount
}

// pickAvailableLocked selects a random managed agent with no client. Caller
// holds the write lock.
func (ix *Index) pickAvailableLocked() *AgentRecord {
	assigned := make(map[string]bool, len(ix.clients))
	for _, client := range ix.clients {
		assigned[client.AgentID] = true
	}

	var available []*AgentRecord
	for id, rec := range ix.agents {
		if IsManaged(id) && !assigned[id] {
			available = append(available, rec)
		}
	}
	if len(available) == 0 {
		return nil
	}
	return available[ix.pick(len(available))]
}

// assignLocked binds an agent to a client. Caller holds the write lock.
func (ix *Index) assignLocked(rec *AgentRecord, clientName string) {
	rec.Alive = true
	rec.AssignedTo = clientName
	rec.LastUpdate = time.Now()
	ix.clients[clientName] = &ClientRecord{
		Name:    clientName,
		AgentID: rec.AgentID,
		APIURL:  rec.APIURL,
	}
}
