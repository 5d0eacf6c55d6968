package transport

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/surajmurari02/ocr-card/internal/client"
	"github.com/surajmurari02/ocr-card/internal/config"
	apperrors "github.com/surajmurari02/ocr-card/internal/errors"
	"github.com/surajmurari02/ocr-card/internal/logger"
	"github.com/surajmurari02/ocr-card/internal/registry"
	"github.com/surajmurari02/ocr-card/internal/service"
	"github.com/surajmurari02/ocr-card/pkg/models"
	"github.com/surajmurari02/ocr-card/pkg/validation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const requestIDKey = "request_id"

// NewHandler wires the HTTP surface: upload intake, health, and the
// endpoint management API.
func NewHandler(extractor service.ExtractionService, reg *registry.Registry, cfg *config.Config) http.Handler {
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE"}

	r.Use(
		requestID(),
		cors.New(corsConfig),
		requestSizeLimiter(cfg.MaxRequestBodySize),
	)

	r.POST("/process_image", processImage(extractor, cfg))
	r.GET("/health", healthCheck(extractor))

	api := r.Group("/api/endpoints")
	{
		api.GET("", listEndpoints(reg))
		api.POST("", addEndpoint(reg))
		api.PUT("/:name", updateEndpoint(reg))
		api.DELETE("/:name", removeEndpoint(reg))
		api.POST("/:name/activate", activateEndpoint(reg))
		api.POST("/:name/test", testEndpoint(reg))
	}

	return r
}

// processImage handles a multipart business-card upload end to end.
func processImage(extractor service.ExtractionService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("image")
		if err != nil {
			respondError(c, http.StatusBadRequest, "no image file uploaded", err)
			return
		}

		filename := validation.SanitizeFilename(fileHeader.Filename)
		logger.WithFields(logrus.Fields{
			"filename":   filename,
			"size_bytes": fileHeader.Size,
			"request_id": c.GetString(requestIDKey),
		}).Info("Processing upload")

		if err := validation.ValidateImageFile(filename, fileHeader.Size, cfg.MaxFileSize); err != nil {
			respondError(c, http.StatusBadRequest, "file validation failed", err)
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "failed to read uploaded image", err)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			respondError(c, http.StatusBadRequest, "failed to read uploaded image", err)
			return
		}

		payload := client.ImagePayload{
			Data:        data,
			ContentType: fileHeader.Header.Get("Content-Type"),
		}

		result, err := extractor.Extract(c.Request.Context(), payload)
		if err != nil {
			respondError(c, apperrors.StatusCode(err), "failed to process image through OCR service", err)
			return
		}

		c.JSON(http.StatusOK, models.ExtractionResponse{
			CanonicalResult: *result,
			Status:          "success",
			Filename:        filename,
			RequestID:       c.GetString(requestIDKey),
		})
	}
}

func healthCheck(extractor service.ExtractionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		reachable := extractor.HealthCheck(c.Request.Context())

		status := "healthy"
		ocrStatus := "up"
		if !reachable {
			status = "degraded"
			ocrStatus = "down"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:     status,
			OCRService: ocrStatus,
			Timestamp:  float64(time.Now().UnixMilli()) / 1000.0,
		})
	}
}

func listEndpoints(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"endpoints": reg.List()})
	}
}

func addEndpoint(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.EndpointRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid endpoint definition", err)
			return
		}

		ep := registry.Endpoint{
			Name:         req.Name,
			URL:          req.URL,
			Timeout:      req.Timeout,
			MaxRetries:   req.MaxRetries,
			RetryDelay:   req.RetryDelay,
			Description:  req.Description,
			Headers:      req.Headers,
			AuthRequired: req.AuthRequired,
			AuthToken:    req.AuthToken,
		}
		if ep.Timeout <= 0 {
			ep.Timeout = 30
		}
		if ep.MaxRetries <= 0 {
			ep.MaxRetries = 3
		}
		if ep.RetryDelay <= 0 {
			ep.RetryDelay = 1.0
		}

		if err := reg.Add(ep); err != nil {
			respondError(c, registryStatusCode(err), "failed to add endpoint", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": "created", "name": ep.Name})
	}
}

func updateEndpoint(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.EndpointUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid endpoint update", err)
			return
		}

		patch := registry.Patch{
			URL:          req.URL,
			Timeout:      req.Timeout,
			MaxRetries:   req.MaxRetries,
			RetryDelay:   req.RetryDelay,
			Description:  req.Description,
			Headers:      req.Headers,
			AuthRequired: req.AuthRequired,
			AuthToken:    req.AuthToken,
		}

		name := c.Param("name")
		if err := reg.Update(name, patch); err != nil {
			respondError(c, registryStatusCode(err), "failed to update endpoint", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "updated", "name": name})
	}
}

func removeEndpoint(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if err := reg.Remove(name); err != nil {
			respondError(c, registryStatusCode(err), "failed to remove endpoint", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "removed", "name": name})
	}
}

func activateEndpoint(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if err := reg.Activate(name); err != nil {
			respondError(c, registryStatusCode(err), "failed to activate endpoint", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "activated", "name": name})
	}
}

func testEndpoint(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, reg.Test(c.Request.Context(), c.Param("name")))
	}
}

// Middleware and helper functions

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func registryStatusCode(err error) int {
	switch {
	case errors.Is(err, registry.ErrEndpointNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrEndpointExists), errors.Is(err, registry.ErrDefaultProtected):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
		"request_id":  c.GetString(requestIDKey),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:     http.StatusText(code),
		Message:   fmt.Sprintf("%s: %v", message, err),
		RequestID: c.GetString(requestIDKey),
	})
}
