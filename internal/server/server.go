package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/kafka-go"

	"imgpress/internal/compress"
	"imgpress/internal/models"
)

// OriginalPrefix is the blob-store area holding uploaded originals.
const OriginalPrefix = "original"

type Server struct {
	cfg       *models.Config
	router    *gin.Engine
	records   compress.RecordStore
	blobs     compress.BlobStore
	orch      *compress.Orchestrator
	validator *compress.Validator
	producer  *kafka.Writer
}

// NewServer wires the HTTP surface. producer may be nil, in which case
// uploads skip the warm queue and compression happens on first download.
func NewServer(cfg *models.Config, records compress.RecordStore, blobs compress.BlobStore,
	orch *compress.Orchestrator, validator *compress.Validator, producer *kafka.Writer) *Server {
	r := gin.Default()

	s := &Server{
		cfg:       cfg,
		router:    r,
		records:   records,
		blobs:     blobs,
		orch:      orch,
		validator: validator,
		producer:  producer,
	}

	r.POST("/upload", s.handleUpload)
	r.GET("/images", s.handleListImages)
	r.GET("/image/:id", s.handleDownloadOriginal)
	r.GET("/image/:id/compressed", s.handleDownloadCompressed)
	r.GET("/image/:id/size", s.handleCompressedSize)
	r.DELETE("/image/:id", s.handleDeleteImage)

	return s
}

func (s *Server) Start() error {
	return s.router.Run(s.cfg.ServerAddr)
}

func (s *Server) Stop() {
	// No shutdown needed for gin
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleUpload(c *gin.Context) {
	const op = "server.handleUpload"

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	storedName := compress.UniqueName(file.Filename)
	originalPath := path.Join(OriginalPrefix, storedName)
	if err := s.blobs.WriteAll(originalPath, data); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	ext := strings.ToLower(path.Ext(file.Filename))
	if ext == "" {
		ext = ".bin"
	}
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	rec := &models.ImageRecord{
		OriginalName: models.Truncate(file.Filename, models.MaxNameLen),
		StoredName:   models.Truncate(storedName, models.MaxNameLen),
		Extension:    models.Truncate(ext, models.MaxExtensionLen),
		SizeBytes:    int64(len(data)),
		ContentType:  models.Truncate(contentType, models.MaxContentTypeLen),
		OriginalPath: originalPath,
		UploadedAt:   time.Now().UTC(),
	}
	if err := s.records.Insert(c.Request.Context(), rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	// Queue cache warming; the synchronous path still compresses on
	// demand if this fails.
	if s.producer != nil {
		msg := kafka.Message{Value: []byte(strconv.FormatInt(rec.ID, 10))}
		if err := s.producer.WriteMessages(c.Request.Context(), msg); err != nil {
			log.Printf("%s: queue record %d: %v", op, rec.ID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           rec.ID,
		"stored_name":  rec.StoredName,
		"compressible": s.validator.Compressible(rec.ContentType),
	})
}

func (s *Server) handleListImages(c *gin.Context) {
	const op = "server.handleListImages"

	limit := 10
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	records, err := s.records.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	items := make([]gin.H, 0, len(records))
	for _, rec := range records {
		item := gin.H{
			"id":            rec.ID,
			"original_name": rec.OriginalName,
			"content_type":  rec.ContentType,
			"size_bytes":    rec.SizeBytes,
			"uploaded_at":   rec.UploadedAt,
			"is_compressed": rec.IsCompressed,
		}
		if rec.IsCompressed {
			item["compressed_size_bytes"] = rec.CompressedSizeBytes
			item["compression_ratio"] = ratioPercent(rec.SizeBytes, rec.CompressedSizeBytes)
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"images": items})
}

func (s *Server) handleDownloadOriginal(c *gin.Context) {
	const op = "server.handleDownloadOriginal"

	rec, ok := s.findRecord(c, op)
	if !ok {
		return
	}

	if rec.OriginalPath == "" || !s.blobs.Exists(rec.OriginalPath) {
		c.JSON(http.StatusNotFound, gin.H{"error": "original file not found"})
		return
	}
	data, err := s.blobs.ReadAll(rec.OriginalPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	serveBytes(c, rec.OriginalName, rec.ContentType, data)
}

func (s *Server) handleDownloadCompressed(c *gin.Context) {
	const op = "server.handleDownloadCompressed"

	quality, ok := parseQuality(c)
	if !ok {
		return
	}

	rec, ok := s.findRecord(c, op)
	if !ok {
		return
	}

	if !s.validator.Compressible(rec.ContentType) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "this file format cannot be compressed"})
		return
	}

	data, err := s.orch.GetCompressedBytes(c.Request.Context(), rec.ID, quality)
	if err != nil {
		s.renderError(c, op, err)
		return
	}

	serveBytes(c, "compressed_"+rec.OriginalName, rec.ContentType, data)
}

func (s *Server) handleCompressedSize(c *gin.Context) {
	const op = "server.handleCompressedSize"

	quality, ok := parseQuality(c)
	if !ok {
		return
	}

	rec, ok := s.findRecord(c, op)
	if !ok {
		return
	}

	if !s.validator.Compressible(rec.ContentType) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "this file format cannot be compressed"})
		return
	}

	data, err := s.orch.GetCompressedBytes(c.Request.Context(), rec.ID, quality)
	if err != nil {
		s.renderError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"original_kb":       roundKB(rec.SizeBytes),
		"compressed_kb":     roundKB(int64(len(data))),
		"compression_ratio": ratioPercent(rec.SizeBytes, int64(len(data))),
	})
}

func (s *Server) handleDeleteImage(c *gin.Context) {
	const op = "server.handleDeleteImage"

	rec, ok := s.findRecord(c, op)
	if !ok {
		return
	}

	if rec.OriginalPath != "" {
		if err := s.blobs.Delete(rec.OriginalPath); err != nil {
			log.Printf("%s: delete original %s: %v", op, rec.OriginalPath, err)
		}
	}
	if rec.CompressedPath != "" {
		if err := s.blobs.Delete(rec.CompressedPath); err != nil {
			log.Printf("%s: delete artifact %s: %v", op, rec.CompressedPath, err)
		}
	}

	if err := s.records.Delete(c.Request.Context(), rec.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	c.Status(http.StatusNoContent)
}

// findRecord parses the :id param and fetches the record, writing the
// error response itself on failure.
func (s *Server) findRecord(c *gin.Context, op string) (*models.ImageRecord, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return nil, false
	}

	rec, err := s.records.Find(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, op, err)
		return nil, false
	}
	return rec, true
}

func (s *Server) renderError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
	case errors.Is(err, models.ErrUnsupportedFormat), errors.Is(err, models.ErrDecode):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
	}
}

func parseQuality(c *gin.Context) (int, bool) {
	v := c.Query("quality")
	if v == "" {
		return 0, true
	}
	q, err := strconv.Atoi(v)
	if err != nil || q < 0 || q > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quality must be between 0 and 100"})
		return 0, false
	}
	return q, true
}

func serveBytes(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func roundKB(bytes int64) float64 {
	return math.Round(float64(bytes)/1024*10) / 10
}

func ratioPercent(original, compressed int64) float64 {
	if original <= 0 {
		return 0
	}
	return math.Round((1-float64(compressed)/float64(original))*1000) / 10
}
