package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nandahq/agentdir/internal/registry"
)

// SaveAgent upserts a directory entry.
func (s *Store) SaveAgent(ctx context.Context, rec *registry.AgentRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO agents (agent_id, agent_url, api_url, alive, assigned_to, unresponsive_count, last_update)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		ON CONFLICT (agent_id) DO UPDATE SET
			agent_url = EXCLUDED.agent_url,
			api_url = EXCLUDED.api_url,
			alive = EXCLUDED.alive,
			assigned_to = EXCLUDED.assigned_to,
			unresponsive_count = EXCLUDED.unresponsive_count,
			last_update = EXCLUDED.last_update`,
		rec.AgentID, rec.AgentURL, rec.APIURL, rec.Alive,
		rec.AssignedTo, rec.UnresponsiveCount, rec.LastUpdate,
	)
	if err != nil {
		return fmt.Errorf("save agent %s: %w", rec.AgentID, err)
	}
	return nil
}

// LoadAgents returns every persisted directory entry.
func (s *Store) LoadAgents(ctx context.Context) ([]registry.AgentRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT agent_id, agent_url, api_url, alive,
		       COALESCE(assigned_to, ''), unresponsive_count, last_update
		FROM agents
		ORDER BY agent_id`)
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	defer rows.Close()

	var out []registry.AgentRecord
	for rows.Next() {
		var rec registry.AgentRecord
		if err := rows.Scan(
			&rec.AgentID, &rec.AgentURL, &rec.APIURL, &rec.Alive,
			&rec.AssignedTo, &rec.UnresponsiveCount, &rec.LastUpdate,
		); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ArchiveAgent moves a removed agent into deleted_agents and drops it from
// the live table, inside one transaction.
func (s *Store) ArchiveAgent(ctx context.Context, rec *registry.AgentRecord, reason string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("archive agent %s: %w", rec.AgentID, err)
	}
	defer tx.Rollback(ctx)

	agentType := "managed"
	if registry.IsSetup(rec.AgentID) {
		agentType = "setup"
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO deleted_agents (agent_id, agent_url, api_url, agent_type, last_assigned_to, unresponsive_count, deletion_reason, deleted_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`,
		rec.AgentID, rec.AgentURL, rec.APIURL, agentType,
		rec.AssignedTo, rec.UnresponsiveCount, reason, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("archive agent %s: %w", rec.AgentID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM agents WHERE agent_id = $1`, rec.AgentID); err != nil {
		return fmt.Errorf("archive agent %s: %w", rec.AgentID, err)
	}
	return tx.Commit(ctx)
}

// SaveClient upserts a client allocation.
func (s *Store) SaveClient(ctx context.Context, c *registry.ClientRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO clients (name, agent_id, api_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			agent_id = EXCLUDED.agent_id,
			api_url = EXCLUDED.api_url`,
		c.Name, c.AgentID, c.APIURL,
	)
	if err != nil {
		return fmt.Errorf("save client %s: %w", c.Name, err)
	}
	return nil
}

// LoadClients returns every persisted client allocation.
func (s *Store) LoadClients(ctx context.Context) ([]registry.ClientRecord, error) {
	rows, err := s.db.Query(ctx, `SELECT name, agent_id, api_url FROM clients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load clients: %w", err)
	}
	defer rows.Close()

	var out []registry.ClientRecord
	for rows.Next() {
		var c registry.ClientRecord
		if err := rows.Scan(&c.Name, &c.AgentID, &c.APIURL); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteClient drops a client allocation.
func (s *Store) DeleteClient(ctx context.Context, name string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM clients WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete client %s: %w", name, err)
	}
	return nil
}
