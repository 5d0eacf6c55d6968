// Package client issues the extraction round trip against the remote OCR
// endpoint: one multipart POST carrying the image and the instruction text,
// with bounded retries for transient failures.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	apperrors "github.com/surajmurari02/ocr-card/internal/errors"
	"github.com/surajmurari02/ocr-card/internal/logger"
	"github.com/surajmurari02/ocr-card/internal/registry"
	"github.com/sirupsen/logrus"
)

const (
	// imageField and queryField are the multipart field names the endpoint
	// expects.
	imageField = "image"
	queryField = "query"

	// uploadFilename is the fixed filename sent with the image part.
	uploadFilename = "business_card.jpg"
)

// retryableStatus lists the HTTP statuses worth another attempt. Everything
// else terminal fails immediately.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// ImagePayload is the opaque image handed to the endpoint. ContentType
// defaults to image/jpeg when empty.
type ImagePayload struct {
	Data        []byte
	ContentType string
}

// Sender abstracts the transport round trip for the service facade.
type Sender interface {
	Send(ctx context.Context, payload ImagePayload, query string, ep registry.Endpoint) (string, error)
	Probe(ctx context.Context, url string) (int, error)
}

// Client implements Sender over a shared http.Client. It keeps no state
// between calls beyond the connection pool.
type Client struct {
	httpClient *http.Client
}

// New creates a transport client. The underlying transport is tuned for
// occasional, single-request uploads rather than bulk traffic.
func New() *Client {
	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			// Per-attempt deadlines come from the request context;
			// no blanket client timeout on top of them.
		},
	}
}

// Send performs the multipart POST with the endpoint's retry policy. It
// retries on 429/5xx statuses and connection-level failures, sleeping a
// monotonically increasing backoff between attempts, and fails immediately
// on any other non-200 status. The returned error is always a
// *errors.TransportError.
func (c *Client) Send(ctx context.Context, payload ImagePayload, query string, ep registry.Endpoint) (string, error) {
	body, contentType, err := buildMultipartBody(payload, query)
	if err != nil {
		return "", apperrors.NewConnectionError(fmt.Errorf("build request body: %w", err))
	}

	attempts := ep.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr *apperrors.TransportError
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			// Linear backoff: base delay grows with each retry
			time.Sleep(time.Duration(attempt-1) * ep.RetryDelayDuration())
		}

		text, terr := c.attempt(ctx, body, contentType, ep)
		if terr == nil {
			if attempt > 1 {
				logger.WithFields(logrus.Fields{
					"endpoint": ep.Name,
					"attempt":  attempt,
				}).Info("OCR request succeeded after retry")
			}
			return text, nil
		}

		logger.WithError(terr).WithFields(logrus.Fields{
			"endpoint": ep.Name,
			"attempt":  attempt,
			"cause":    string(terr.Cause),
		}).Warn("OCR request attempt failed")

		lastErr = terr
		if terr.Status != 0 && !retryableStatus[terr.Status] {
			// Non-retryable HTTP status: surface without further attempts
			return "", terr
		}
	}
	return "", lastErr
}

// attempt runs one request/response cycle under the endpoint's timeout.
func (c *Client) attempt(ctx context.Context, body []byte, contentType string, ep registry.Endpoint) (string, *apperrors.TransportError) {
	attemptCtx := ctx
	if timeout := ep.TimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewConnectionError(err)
	}
	req.Header.Set("Content-Type", contentType)
	for key, value := range ep.Headers {
		req.Header.Set(key, value)
	}
	if ep.AuthRequired && ep.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+ep.AuthToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", apperrors.NewTimeoutError(err)
		}
		return "", apperrors.NewConnectionError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return "", apperrors.NewTimeoutError(err)
		}
		return "", apperrors.NewConnectionError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewHTTPStatusError(resp.StatusCode)
	}
	return string(data), nil
}

// Probe issues a minimal HEAD request to check endpoint reachability. Any
// HTTP response at all, including 405 for endpoints that reject HEAD, means
// the endpoint is alive.
func (c *Client) Probe(ctx context.Context, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func buildMultipartBody(payload ImagePayload, query string) ([]byte, string, error) {
	contentType := payload.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, imageField, uploadFilename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload.Data); err != nil {
		return nil, "", err
	}

	if err := writer.WriteField(queryField, query); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout")
}
