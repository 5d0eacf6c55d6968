package container

import (
	"fmt"
	"net/http"

	"github.com/surajmurari02/ocr-card/internal/client"
	"github.com/surajmurari02/ocr-card/internal/config"
	"github.com/surajmurari02/ocr-card/internal/registry"
	"github.com/surajmurari02/ocr-card/internal/service"
	"github.com/surajmurari02/ocr-card/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config   *config.Config
	store    registry.Store
	registry *registry.Registry
	sender   client.Sender
	service  service.ExtractionService
	handler  http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	// Pick the registry store: blob-backed when Azure credentials are
	// configured, local file otherwise
	var store registry.Store
	if cfg.UseBlobStore() {
		blobStore, err := registry.NewBlobStore(
			cfg.AzureAccountName, cfg.AzureAccountKey,
			cfg.EndpointsContainer, cfg.EndpointsBlob,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob store: %w", err)
		}
		store = blobStore
	} else {
		store = registry.NewFileStore(cfg.EndpointsFile)
	}

	// Seed for the reserved default endpoint, from process config
	seed := registry.Endpoint{
		URL:        cfg.OCRAPIURL,
		Timeout:    int(cfg.RequestTimeout.Seconds()),
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay.Seconds(),
	}

	reg, err := registry.New(store, seed)
	if err != nil {
		return nil, err
	}

	sender := client.New()
	extractionService := service.NewExtractionService(reg, sender)
	handler := transport.NewHandler(extractionService, reg, cfg)

	return &Container{
		config:   cfg,
		store:    store,
		registry: reg,
		sender:   sender,
		service:  extractionService,
		handler:  handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Registry returns the endpoint registry
func (c *Container) Registry() *registry.Registry {
	return c.registry
}

// Service returns the extraction service
func (c *Container) Service() service.ExtractionService {
	return c.service
}
