package federation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// LocalRegistryID is the registry id an unprefixed agent identifier resolves
// to. Lookups against it are served by the local index, not an adapter.
const LocalRegistryID = "nanda"

// ErrUnknownRegistry is returned when an identifier names a registry no
// adapter is registered for.
var ErrUnknownRegistry = errors.New("unknown registry")

// ParseIdentifier splits a federated agent identifier into registry id and
// agent name. "@agntcy:helper" and "agntcy:helper" both route to "agntcy";
// an identifier without a registry prefix routes to LocalRegistryID.
func ParseIdentifier(agentID string) (registryID, name string) {
	id := strings.TrimPrefix(agentID, "@")
	if i := strings.Index(id, ":"); i > 0 {
		return id[:i], id[i+1:]
	}
	return LocalRegistryID, id
}

// Router dispatches federated lookups to the adapter owning the identifier's
// registry prefix.
type Router struct {
	adapters map[string]DirectoryAdapter
	log      *zap.Logger
}

// NewRouter builds an empty federation router.
func NewRouter(log *zap.Logger) *Router {
	return &Router{
		adapters: make(map[string]DirectoryAdapter),
		log:      log,
	}
}

// Register adds an adapter, keyed by its registry id. A second adapter for
// the same registry replaces the first.
func (r *Router) Register(adapter DirectoryAdapter) {
	r.adapters[adapter.RegistryID()] = adapter
	r.log.Info("federation adapter registered",
		zap.String("registry_id", adapter.RegistryID()))
}

// Adapter resolves a registry id to its adapter.
func (r *Router) Adapter(registryID string) (DirectoryAdapter, bool) {
	a, ok := r.adapters[registryID]
	return a, ok
}

// Lookup routes a prefixed identifier to its registry and returns the
// imported Nanda entry. Identifiers without a known registry prefix fail
// with ErrUnknownRegistry; local identifiers are the caller's to serve.
func (r *Router) Lookup(ctx context.Context, agentID string) (map[string]any, error) {
	registryID, name := ParseIdentifier(agentID)
	adapter, ok := r.adapters[registryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRegistry, registryID)
	}
	return adapter.ImportAgent(ctx, name)
}

// Registries reports every configured adapter's Info, sorted by registry id
// so the listing is stable.
func (r *Router) Registries(ctx context.Context) []Info {
	infos := make([]Info, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		infos = append(infos, adapter.Info(ctx))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].RegistryID < infos[j].RegistryID })
	return infos
}

// Len returns the number of registered adapters.
func (r *Router) Len() int {
	return len(r.adapters)
}
