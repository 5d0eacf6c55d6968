// Package service composes the extraction pipeline: transport round trip,
// response normalization, and field mapping, timed end to end and wrapped
// into the single boundary error type.
package service

import (
	"context"
	"time"

	"github.com/surajmurari02/ocr-card/internal/client"
	apperrors "github.com/surajmurari02/ocr-card/internal/errors"
	"github.com/surajmurari02/ocr-card/internal/extract"
	"github.com/surajmurari02/ocr-card/internal/logger"
	"github.com/surajmurari02/ocr-card/internal/normalize"
	"github.com/surajmurari02/ocr-card/internal/registry"
	"github.com/surajmurari02/ocr-card/pkg/models"
	"github.com/sirupsen/logrus"
)

// defaultQuery is the fixed instruction sent with every image.
const defaultQuery = "I am providing business cards. I want JSON output with keys like " +
	"name, company name, mobile number, email, and address in a structured format."

// ExtractionService is the single operation exposed to the upload-handling
// layer, plus a lightweight liveness probe.
type ExtractionService interface {
	// Extract submits image bytes and returns the canonical contact record.
	// Failures are always *errors.ServiceError; a successful result with
	// every field absent means "nothing recognized" and is not an error.
	Extract(ctx context.Context, payload client.ImagePayload) (*models.CanonicalResult, error)

	// HealthCheck reports whether the active endpoint is reachable at all,
	// which is distinct from it producing usable results.
	HealthCheck(ctx context.Context) bool
}

type extractionService struct {
	registry *registry.Registry
	sender   client.Sender
}

// NewExtractionService creates the extraction facade.
func NewExtractionService(reg *registry.Registry, sender client.Sender) ExtractionService {
	return &extractionService{
		registry: reg,
		sender:   sender,
	}
}

func (s *extractionService) Extract(ctx context.Context, payload client.ImagePayload) (*models.CanonicalResult, error) {
	ep := s.registry.Active()

	logger.WithFields(logrus.Fields{
		"endpoint":    ep.Name,
		"url":         ep.URL,
		"image_bytes": len(payload.Data),
	}).Info("Sending OCR request")

	start := time.Now()
	raw, err := s.sender.Send(ctx, payload, defaultQuery, ep)
	if err != nil {
		return nil, apperrors.NewServiceError(apperrors.KindTransport, err)
	}
	elapsed := time.Since(start).Seconds()

	logger.WithFields(logrus.Fields{
		"endpoint":          ep.Name,
		"processing_time_s": elapsed,
		"response_bytes":    len(raw),
	}).Info("OCR API response received")

	obj, err := normalize.Normalize(raw)
	if err != nil {
		return nil, apperrors.NewServiceError(apperrors.KindMalformedResponse, err)
	}

	result := extract.Map(obj, elapsed)

	logger.WithFields(logrus.Fields{
		"endpoint":         ep.Name,
		"fields_recovered": !result.Empty(),
	}).Info("OCR extraction completed")

	return &result, nil
}

func (s *extractionService) HealthCheck(ctx context.Context) bool {
	ep := s.registry.Active()

	status, err := s.sender.Probe(ctx, ep.URL)
	if err != nil {
		logger.WithError(err).WithField("endpoint", ep.Name).Warn("OCR API health check failed")
		return false
	}

	// Any response means the endpoint is alive; the upload route answers
	// HEAD with 405, which still proves reachability.
	logger.WithFields(logrus.Fields{
		"endpoint": ep.Name,
		"status":   status,
	}).Debug("OCR API health check")
	return true
}
