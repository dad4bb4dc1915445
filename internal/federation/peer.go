package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nandahq/agentdir/internal/oasf"
	"github.com/nandahq/agentdir/internal/translate"
)

// ErrRecordNotFound is returned when the peer directory has no record for
// the requested name.
var ErrRecordNotFound = errors.New("record not found in peer directory")

var _ DirectoryAdapter = (*PeerAdapter)(nil)

// PeerAdapter queries a remote OASF directory over HTTP. When the peer
// exposes a gRPC health endpoint, fetches are gated on a serving check.
type PeerAdapter struct {
	registryID string
	baseURL    string
	client     *http.Client
	conn       *grpc.ClientConn
	health     grpc_health_v1.HealthClient
	translator *translate.Translator
	log        *zap.Logger
}

// NewPeerAdapter builds an adapter for one remote directory. healthAddr is
// the peer's gRPC health endpoint; empty disables the probe.
func NewPeerAdapter(registryID, baseURL, healthAddr string, translator *translate.Translator, log *zap.Logger) (*PeerAdapter, error) {
	p := &PeerAdapter{
		registryID: registryID,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		client:     &http.Client{Timeout: 10 * time.Second},
		translator: translator,
		log:        log,
	}
	if healthAddr != "" {
		conn, err := grpc.NewClient(healthAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("peer %s health connect %s: %w", registryID, healthAddr, err)
		}
		p.conn = conn
		p.health = grpc_health_v1.NewHealthClient(conn)
	}
	return p, nil
}

// RegistryID returns the peer's directory id, used to namespace imported
// agent ids.
func (p *PeerAdapter) RegistryID() string {
	return p.registryID
}

// Probe checks the peer's gRPC health service. A peer without a health
// endpoint is assumed reachable.
func (p *PeerAdapter) Probe(ctx context.Context) error {
	if p.health == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resp, err := p.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("peer %s health check: %w", p.registryID, err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("peer %s not serving: %s", p.registryID, resp.GetStatus())
	}
	return nil
}

// QueryAgent fetches a raw OASF record by name. The envelope's "data" field
// is unwrapped when present.
func (p *PeerAdapter) QueryAgent(ctx context.Context, name string) (map[string]any, error) {
	if err := p.Probe(ctx); err != nil {
		return nil, err
	}

	url := p.baseURL + "/records/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("peer %s query: %w", p.registryID, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("peer %s query %s: %w", p.registryID, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("peer %s query %s: status %d", p.registryID, name, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("peer %s read %s: %w", p.registryID, name, err)
	}
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("peer %s decode %s: %w", p.registryID, name, err)
	}
	if data, ok := envelope["data"].(map[string]any); ok {
		return data, nil
	}
	return envelope, nil
}

// ImportAgent fetches a remote record and translates it into a Nanda entry.
func (p *PeerAdapter) ImportAgent(ctx context.Context, name string) (map[string]any, error) {
	raw, err := p.QueryAgent(ctx, name)
	if err != nil {
		return nil, err
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("peer %s import %s: %w", p.registryID, name, err)
	}
	entry := p.translator.ToNandaEntry(rec, p.registryID)
	p.log.Info("imported remote agent",
		zap.String("peer", p.registryID),
		zap.String("name", name))
	return entry, nil
}

// Info reports the peer's configuration and current reachability.
func (p *PeerAdapter) Info(ctx context.Context) Info {
	return Info{
		RegistryID: p.registryID,
		BaseURL:    p.baseURL,
		Healthy:    p.Probe(ctx) == nil,
	}
}

// Close releases the gRPC connection, if any.
func (p *PeerAdapter) Close() error {
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// decodeRecord converts a raw record map into the typed OASF shape.
func decodeRecord(raw map[string]any) (*oasf.Record, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var rec oasf.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
