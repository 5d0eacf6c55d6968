package registry

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func seedEndpoint() Endpoint {
	return Endpoint{
		URL:        "http://ocr.internal/upload",
		Timeout:    30,
		MaxRetries: 3,
		RetryDelay: 1.0,
	}
}

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api_endpoints.json")
	reg, err := New(NewFileStore(path), seedEndpoint())
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	return reg, path
}

func readDocument(t *testing.T, path string) Document {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read persisted document: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Failed to decode persisted document: %v", err)
	}
	return doc
}

func TestNew_SeedsDefaultAndPersists(t *testing.T) {
	reg, path := newTestRegistry(t)

	active := reg.Active()
	if active.Name != DefaultName {
		t.Errorf("Expected active %q, got %q", DefaultName, active.Name)
	}
	if active.URL != "http://ocr.internal/upload" {
		t.Errorf("Unexpected seeded URL: %q", active.URL)
	}

	doc := readDocument(t, path)
	if doc.ActiveEndpoint != DefaultName {
		t.Errorf("Persisted active = %q", doc.ActiveEndpoint)
	}
	if _, ok := doc.Endpoints[DefaultName]; !ok {
		t.Errorf("Persisted document missing default endpoint: %v", doc.Endpoints)
	}
}

func TestNew_LoadsExistingDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_endpoints.json")
	existing := Document{
		ActiveEndpoint: "staging",
		Endpoints: map[string]Endpoint{
			"default": {URL: "http://a/upload", Timeout: 30},
			"staging": {URL: "http://b/upload", Timeout: 45},
		},
	}
	data, _ := json.Marshal(existing)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := New(NewFileStore(path), seedEndpoint())
	if err != nil {
		t.Fatalf("Failed to load registry: %v", err)
	}

	active := reg.Active()
	if active.Name != "staging" || active.URL != "http://b/upload" {
		t.Errorf("Expected staging active, got %+v", active)
	}
}

func TestNew_MissingActiveFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_endpoints.json")
	existing := Document{
		ActiveEndpoint: "gone",
		Endpoints: map[string]Endpoint{
			"default": {URL: "http://a/upload", Timeout: 30},
		},
	}
	data, _ := json.Marshal(existing)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := New(NewFileStore(path), seedEndpoint())
	if err != nil {
		t.Fatalf("Failed to load registry: %v", err)
	}
	if reg.Active().Name != DefaultName {
		t.Errorf("Expected fallback to default, got %q", reg.Active().Name)
	}
}

func TestRemove_DefaultProtected(t *testing.T) {
	reg, _ := newTestRegistry(t)

	if err := reg.Remove(DefaultName); !errors.Is(err, ErrDefaultProtected) {
		t.Errorf("Expected ErrDefaultProtected, got %v", err)
	}
}

func TestRemove_ActiveFallsBackToDefault(t *testing.T) {
	reg, path := newTestRegistry(t)

	other := seedEndpoint()
	other.Name = "backup"
	other.URL = "http://backup/upload"
	if err := reg.Add(other); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := reg.Activate("backup"); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if reg.Active().Name != "backup" {
		t.Fatalf("Expected backup active, got %q", reg.Active().Name)
	}

	if err := reg.Remove("backup"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if reg.Active().Name != DefaultName {
		t.Errorf("Expected default after removing active, got %q", reg.Active().Name)
	}

	doc := readDocument(t, path)
	if doc.ActiveEndpoint != DefaultName {
		t.Errorf("Persisted active = %q", doc.ActiveEndpoint)
	}
	if _, ok := doc.Endpoints["backup"]; ok {
		t.Errorf("Removed endpoint still persisted")
	}
}

func TestAdd_DuplicateRejected(t *testing.T) {
	reg, _ := newTestRegistry(t)

	ep := seedEndpoint()
	ep.Name = "dup"
	if err := reg.Add(ep); err != nil {
		t.Fatalf("First add failed: %v", err)
	}
	if err := reg.Add(ep); !errors.Is(err, ErrEndpointExists) {
		t.Errorf("Expected ErrEndpointExists, got %v", err)
	}
}

func TestUpdate_PartialPatch(t *testing.T) {
	reg, path := newTestRegistry(t)

	url := "http://new/upload"
	timeout := 60
	if err := reg.Update(DefaultName, Patch{URL: &url, Timeout: &timeout}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	ep, err := reg.Get(DefaultName)
	if err != nil {
		t.Fatal(err)
	}
	if ep.URL != url || ep.Timeout != timeout {
		t.Errorf("Patch not applied: %+v", ep)
	}
	if ep.MaxRetries != 3 {
		t.Errorf("Untouched field changed: %+v", ep)
	}

	doc := readDocument(t, path)
	if doc.Endpoints[DefaultName].URL != url {
		t.Errorf("Persisted URL = %q", doc.Endpoints[DefaultName].URL)
	}
}

func TestUpdate_UnknownEndpoint(t *testing.T) {
	reg, _ := newTestRegistry(t)

	url := "http://x/upload"
	if err := reg.Update("missing", Patch{URL: &url}); !errors.Is(err, ErrEndpointNotFound) {
		t.Errorf("Expected ErrEndpointNotFound, got %v", err)
	}
}

func TestActivate_UnknownEndpoint(t *testing.T) {
	reg, _ := newTestRegistry(t)

	if err := reg.Activate("missing"); !errors.Is(err, ErrEndpointNotFound) {
		t.Errorf("Expected ErrEndpointNotFound, got %v", err)
	}
}

func TestList_MarksActiveAndOmitsTokens(t *testing.T) {
	reg, _ := newTestRegistry(t)

	ep := seedEndpoint()
	ep.Name = "secured"
	ep.AuthRequired = true
	ep.AuthToken = "secret"
	if err := reg.Add(ep); err != nil {
		t.Fatal(err)
	}

	summaries := reg.List()
	if len(summaries) != 2 {
		t.Fatalf("Expected 2 summaries, got %d", len(summaries))
	}
	for _, s := range summaries {
		if s.Name == DefaultName && !s.Active {
			t.Errorf("Default should be marked active")
		}
		if s.Name == "secured" && !s.AuthRequired {
			t.Errorf("AuthRequired flag lost in summary")
		}
	}
}

func TestRegistry_ConcurrentReadsDuringMutation(t *testing.T) {
	reg, _ := newTestRegistry(t)

	ep := seedEndpoint()
	ep.Name = "alt"
	ep.URL = "http://alt/upload"
	if err := reg.Add(ep); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				active := reg.Active()
				// A snapshot must always be internally consistent
				if active.Name != DefaultName && active.Name != "alt" {
					t.Errorf("Torn read: %+v", active)
					return
				}
				if active.URL == "" {
					t.Errorf("Half-updated endpoint observed: %+v", active)
					return
				}
			}
		}()
	}
	for j := 0; j < 100; j++ {
		name := DefaultName
		if j%2 == 0 {
			name = "alt"
		}
		if err := reg.Activate(name); err != nil {
			t.Fatalf("Activate failed: %v", err)
		}
	}
	wg.Wait()
}

func TestFileStore_MissingDocument(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))
	if _, err := store.Load(context.Background()); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Expected ErrDocumentNotFound, got %v", err)
	}
}
