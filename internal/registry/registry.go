// Package registry owns the process-wide set of named OCR endpoint
// configurations. Exactly one entry is active at a time; a reserved entry
// named "default" always exists and cannot be removed. Every mutation
// persists the full document through the configured Store before returning.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/surajmurari02/ocr-card/internal/logger"
	"github.com/surajmurari02/ocr-card/pkg/models"
	"github.com/sirupsen/logrus"
)

// DefaultName is the reserved endpoint that is always present.
const DefaultName = "default"

var (
	// ErrEndpointNotFound indicates the named endpoint is not registered
	ErrEndpointNotFound = errors.New("endpoint not found")

	// ErrDefaultProtected indicates an attempt to remove the reserved entry
	ErrDefaultProtected = errors.New("default endpoint cannot be removed")

	// ErrEndpointExists indicates a name collision on Add
	ErrEndpointExists = errors.New("endpoint already exists")
)

// Endpoint is one named OCR endpoint configuration. Timeout and RetryDelay
// are plain seconds, matching the persisted document.
type Endpoint struct {
	Name         string            `json:"name"`
	URL          string            `json:"url"`
	Timeout      int               `json:"timeout"`
	MaxRetries   int               `json:"max_retries"`
	RetryDelay   float64           `json:"retry_delay"`
	Description  string            `json:"description"`
	Headers      map[string]string `json:"headers"`
	AuthRequired bool              `json:"auth_required"`
	AuthToken    string            `json:"auth_token"`
}

// TimeoutDuration returns the per-request timeout as a duration.
func (e Endpoint) TimeoutDuration() time.Duration {
	return time.Duration(e.Timeout) * time.Second
}

// RetryDelayDuration returns the backoff base as a duration.
func (e Endpoint) RetryDelayDuration() time.Duration {
	return time.Duration(e.RetryDelay * float64(time.Second))
}

// Registry is the mutex-guarded endpoint set. Reads used to build a request
// take a snapshot under the read lock, so a concurrent mutation can never
// expose a half-updated endpoint.
type Registry struct {
	mu     sync.RWMutex
	store  Store
	active string
	items  map[string]Endpoint
}

// New loads the registry from the store, seeding a fresh document around the
// given default endpoint when none is persisted yet.
func New(store Store, seed Endpoint) (*Registry, error) {
	r := &Registry{store: store}

	doc, err := store.Load(context.Background())
	switch {
	case err == nil:
		r.active = doc.ActiveEndpoint
		if r.active == "" {
			r.active = DefaultName
		}
		r.items = make(map[string]Endpoint, len(doc.Endpoints))
		for name, ep := range doc.Endpoints {
			ep.Name = name
			r.items[name] = ep
		}
		logger.WithFields(logrus.Fields{
			"endpoints": len(r.items),
			"active":    r.active,
		}).Info("Loaded endpoint registry")
	case errors.Is(err, ErrDocumentNotFound):
		seed.Name = DefaultName
		if seed.Description == "" {
			seed.Description = "Default OCR API endpoint"
		}
		r.active = DefaultName
		r.items = map[string]Endpoint{DefaultName: seed}
		logger.Info("No persisted endpoint registry, seeding default")
	default:
		return nil, fmt.Errorf("failed to load endpoint registry: %w", err)
	}

	// The reserved entry must exist even in a hand-edited document
	if _, ok := r.items[DefaultName]; !ok {
		seed.Name = DefaultName
		r.items[DefaultName] = seed
	}
	if _, ok := r.items[r.active]; !ok {
		r.active = DefaultName
	}

	if err := r.persistLocked(); err != nil {
		return nil, err
	}
	return r, nil
}

// Active returns a snapshot of the currently active endpoint, falling back
// to the reserved default when the active name is missing.
func (r *Registry) Active() Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ep, ok := r.items[r.active]; ok {
		return ep
	}
	return r.items[DefaultName]
}

// Get returns a snapshot of the named endpoint.
func (r *Registry) Get(name string) (Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.items[name]
	if !ok {
		return Endpoint{}, ErrEndpointNotFound
	}
	return ep, nil
}

// List returns endpoint summaries sorted by name, marking the active entry.
// Auth tokens never leave the registry through this path.
func (r *Registry) List() []models.EndpointSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]models.EndpointSummary, 0, len(r.items))
	for name, ep := range r.items {
		summaries = append(summaries, models.EndpointSummary{
			Name:         name,
			URL:          ep.URL,
			Description:  ep.Description,
			Active:       name == r.active,
			Timeout:      ep.Timeout,
			AuthRequired: ep.AuthRequired,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries
}

// Add registers a new endpoint and persists the document.
func (r *Registry) Add(ep Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ep.Name == "" {
		return fmt.Errorf("endpoint name is required")
	}
	if _, ok := r.items[ep.Name]; ok {
		return ErrEndpointExists
	}
	if ep.Headers == nil {
		ep.Headers = map[string]string{}
	}
	r.items[ep.Name] = ep

	logger.WithField("endpoint", ep.Name).Info("Added API endpoint")
	return r.persistLocked()
}

// Patch carries a partial endpoint update; nil fields are untouched.
type Patch struct {
	URL          *string
	Timeout      *int
	MaxRetries   *int
	RetryDelay   *float64
	Description  *string
	Headers      *map[string]string
	AuthRequired *bool
	AuthToken    *string
}

// Update applies a partial update to the named endpoint. Updating the
// reserved default entry is allowed; only removal is blocked.
func (r *Registry) Update(name string, patch Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, ok := r.items[name]
	if !ok {
		return ErrEndpointNotFound
	}
	if patch.URL != nil {
		ep.URL = *patch.URL
	}
	if patch.Timeout != nil {
		ep.Timeout = *patch.Timeout
	}
	if patch.MaxRetries != nil {
		ep.MaxRetries = *patch.MaxRetries
	}
	if patch.RetryDelay != nil {
		ep.RetryDelay = *patch.RetryDelay
	}
	if patch.Description != nil {
		ep.Description = *patch.Description
	}
	if patch.Headers != nil {
		ep.Headers = *patch.Headers
	}
	if patch.AuthRequired != nil {
		ep.AuthRequired = *patch.AuthRequired
	}
	if patch.AuthToken != nil {
		ep.AuthToken = *patch.AuthToken
	}
	r.items[name] = ep

	logger.WithField("endpoint", name).Info("Updated API endpoint")
	return r.persistLocked()
}

// Remove deletes the named endpoint. Removing the active endpoint falls
// back to activating the reserved default.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == DefaultName {
		return ErrDefaultProtected
	}
	if _, ok := r.items[name]; !ok {
		return ErrEndpointNotFound
	}
	delete(r.items, name)
	if r.active == name {
		r.active = DefaultName
	}

	logger.WithField("endpoint", name).Info("Removed API endpoint")
	return r.persistLocked()
}

// Activate switches the active endpoint and persists the document.
func (r *Registry) Activate(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[name]; !ok {
		return ErrEndpointNotFound
	}
	r.active = name

	logger.WithField("endpoint", name).Info("Switched active API endpoint")
	return r.persistLocked()
}

// Test probes the named endpoint's health route and reports reachability.
func (r *Registry) Test(ctx context.Context, name string) models.EndpointTestResult {
	ep, err := r.Get(name)
	if err != nil {
		return models.EndpointTestResult{Success: false, Error: err.Error()}
	}

	timeout := ep.TimeoutDuration()
	if timeout <= 0 || timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Probe the sibling health route of the configured upload URL
	base := ep.URL
	if idx := strings.LastIndex(base, "/"); idx != -1 {
		base = base[:idx]
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return models.EndpointTestResult{Success: false, Error: err.Error()}
	}
	for key, value := range ep.Headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return models.EndpointTestResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	return models.EndpointTestResult{
		Success:      true,
		StatusCode:   resp.StatusCode,
		ResponseTime: time.Since(start).Seconds(),
	}
}

// persistLocked writes the full document through the store. Callers hold the
// write lock (or exclusive access during construction), so persisted
// documents always reflect a consistent snapshot.
func (r *Registry) persistLocked() error {
	doc := &Document{
		ActiveEndpoint: r.active,
		Endpoints:      make(map[string]Endpoint, len(r.items)),
	}
	for name, ep := range r.items {
		doc.Endpoints[name] = ep
	}

	if err := r.store.Save(context.Background(), doc); err != nil {
		return fmt.Errorf("failed to persist endpoint registry: %w", err)
	}
	return nil
}
