// Package api exposes the registry and interop endpoints over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nandahq/agentdir/internal/events"
	"github.com/nandahq/agentdir/internal/federation"
	"github.com/nandahq/agentdir/internal/oasf"
	"github.com/nandahq/agentdir/internal/registry"
	"github.com/nandahq/agentdir/internal/translate"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	index      *registry.Index
	translator *translate.Translator
	bus        *events.Bus
	peers      *federation.Router
	log        *zap.Logger
}

// NewHandler creates the API handler. The event bus and the federation
// router are optional.
func NewHandler(index *registry.Index, translator *translate.Translator, bus *events.Bus, peers *federation.Router, log *zap.Logger) *Handler {
	return &Handler{
		index:      index,
		translator: translator,
		bus:        bus,
		peers:      peers,
		log:        log,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Registry routes
	r.Post("/register", h.register)
	r.Get("/lookup/{id}", h.lookup)
	r.Get("/list", h.list)
	r.Get("/status/{agentID}", h.status)
	r.Get("/clients", h.listClients)
	r.Get("/sender/{agentID}", h.sender)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Post("/allocate", h.allocate)
	})

	// Interop routes
	r.Get("/agents/{id}/facts", h.agentFacts)
	r.Route("/interop", func(r chi.Router) {
		r.Post("/import", h.importRecord)
		r.Get("/export/{id}", h.exportRecord)
		r.Post("/validate", h.validateRecord)
	})

	// Federation routes
	r.Route("/federation", func(r chi.Router) {
		r.Get("/lookup/{agentID}", h.federationLookup)
		r.Get("/registries", h.federationRegistries)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"agents": h.index.Len(),
	})
}

type registerRequest struct {
	AgentID  string `json:"agent_id"`
	AgentURL string `json:"agent_url"`
	APIURL   string `json:"api_url"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.AgentID == "" || req.AgentURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "agent_id and agent_url are required"})
		return
	}

	h.index.Register(req.AgentID, req.AgentURL, req.APIURL)
	h.publish(r, req.AgentID, events.ActionRegistered)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Agent " + req.AgentID + " registered successfully",
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.index.Lookup(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ID '" + id + "' not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"agent_id":  rec.AgentID,
		"agent_url": rec.AgentURL,
		"api_url":   rec.APIURL,
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.index.List())
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	rec, ok := h.index.Get(agentID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.index.Clients())
}

func (h *Handler) sender(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	sender, err := h.index.Sender(agentID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unassigned agent"})
		return
	}
	if sender == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no client assigned to this agent"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sender_name": sender})
}

type allocateRequest struct {
	ClientID string `json:"client_id"`
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.ClientID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "client_id is required"})
		return
	}

	alloc, err := h.index.Allocate(req.ClientID)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no available agents at this time"})
		return
	}
	if alloc.Existing {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "allocated",
			"message":   "Client " + req.ClientID + " is already allocated",
			"agent_url": alloc.AgentURL,
			"api_url":   alloc.APIURL,
		})
		return
	}

	h.publish(r, alloc.AgentID, events.ActionAllocated)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "success",
		"message":   "Agent " + alloc.AgentID + " assigned to " + req.ClientID,
		"agent_url": alloc.AgentURL,
		"api_url":   alloc.APIURL,
	})
}

// agentFacts converts a registry entry to a schema-validated AgentFacts
// record and returns both the record and the validation verdict.
func (h *Handler) agentFacts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.index.Lookup(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}

	entry := map[string]any{
		"id":          rec.AgentID,
		"agent_url":   rec.AgentURL,
		"api_url":     rec.APIURL,
		"last_update": rec.LastUpdate.Format(time.RFC3339),
	}
	record, err := h.translator.ToAgentFacts(entry)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	valid, verrs := h.translator.Validate(record)
	writeJSON(w, http.StatusOK, map[string]any{
		"record": record,
		"valid":  valid,
		"errors": verrs,
	})
}

// importRecord registers an agent from a posted OASF record.
func (h *Handler) importRecord(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rec, err := decodeOASF(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	reg := h.translator.DeriveRegistration(rec)

	h.index.Register(reg.AgentID, reg.AgentURL, reg.APIURL)
	h.publish(r, reg.AgentID, events.ActionImported)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "success",
		"registration": reg,
	})
}

// exportRecord translates a registry entry into an OASF record.
func (h *Handler) exportRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.index.Lookup(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}

	entry := map[string]any{
		"agent_id":    rec.AgentID,
		"agent_url":   rec.AgentURL,
		"api_url":     rec.APIURL,
		"last_update": rec.LastUpdate.Format(time.RFC3339),
	}
	record, err := h.translator.ToOASFRecord(entry)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, translate.ErrMissingIdentity) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	h.publish(r, rec.AgentID, events.ActionExported)
	writeJSON(w, http.StatusOK, record)
}

// validateRecord checks a posted AgentFacts record against the schema.
func (h *Handler) validateRecord(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	valid, verrs := h.translator.Validate([]byte(raw))
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  valid,
		"errors": verrs,
	})
}

// federationLookup resolves a possibly registry-prefixed agent identifier.
// Unprefixed (or "nanda:") identifiers are served from the local index as
// AgentFacts records; prefixed ones route to the matching peer directory and
// come back as imported Nanda entries.
func (h *Handler) federationLookup(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	registryID, name := federation.ParseIdentifier(agentID)

	if registryID == federation.LocalRegistryID {
		rec, err := h.index.Lookup(name)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Agent not found: " + agentID})
			return
		}
		record, err := h.translator.ToAgentFacts(map[string]any{
			"id":          rec.AgentID,
			"agent_url":   rec.AgentURL,
			"api_url":     rec.APIURL,
			"last_update": rec.LastUpdate.Format(time.RFC3339),
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, record)
		return
	}

	if h.peers == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Agent not found: " + agentID})
		return
	}
	entry, err := h.peers.Lookup(r.Context(), agentID)
	if err != nil {
		h.log.Warn("federated lookup failed",
			zap.String("agent_id", agentID),
			zap.String("registry_id", registryID),
			zap.Error(err))
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Agent not found: " + agentID})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// federationRegistries lists the local registry and every configured peer.
func (h *Handler) federationRegistries(w http.ResponseWriter, r *http.Request) {
	registries := []federation.Info{{RegistryID: federation.LocalRegistryID, Healthy: true}}
	if h.peers != nil {
		registries = append(registries, h.peers.Registries(r.Context())...)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"registries": registries,
		"count":      len(registries),
	})
}

// publish emits a sync event when a bus is attached.
func (h *Handler) publish(r *http.Request, agentID, action string) {
	if h.bus == nil {
		return
	}
	ev := &events.SyncEvent{Source: "api", AgentID: agentID, Action: action}
	if err := h.bus.Publish(r.Context(), ev); err != nil {
		h.log.Warn("sync event publish failed",
			zap.String("agent_id", agentID),
			zap.String("action", action),
			zap.Error(err))
	}
}

// decodeOASF parses a posted OASF record body.
func decodeOASF(raw []byte) (*oasf.Record, error) {
	var rec oasf.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", translate.ErrMalformedInput, err)
	}
	return &rec, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
