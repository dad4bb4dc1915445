// Package federation fetches agent records from remote directories and
// brings them into the local registry through the translators. Network
// timeouts and retries live here; the translators stay I/O free.
package federation

import "context"

// Info describes a configured remote directory.
type Info struct {
	RegistryID string `json:"registry_id"`
	BaseURL    string `json:"base_url"`
	Healthy    bool   `json:"healthy"`
}

// DirectoryAdapter is a remote agent directory. QueryAgent hands back the
// raw record as decoded JSON; ImportAgent additionally translates it into
// the local Nanda entry shape.
type DirectoryAdapter interface {
	RegistryID() string
	QueryAgent(ctx context.Context, name string) (map[string]any, error)
	ImportAgent(ctx context.Context, name string) (map[string]any, error)
	Info(ctx context.Context) Info
}
