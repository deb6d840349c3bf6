package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/common"
	"github.com/dmitrijs2005/quicksend/internal/server/models"
	"github.com/dmitrijs2005/quicksend/internal/server/services"
	"github.com/dmitrijs2005/quicksend/internal/tier"
	"github.com/labstack/echo/v4"
)

// uploadRequest accepts both the documented field names and the ones sent
// by older mobile builds (fileType, subscriptionTier).
type uploadRequest struct {
	FileName         string `json:"fileName"`
	MimeType         string `json:"mimeType"`
	FileType         string `json:"fileType"`
	FileSize         int64  `json:"fileSize"`
	Tier             string `json:"tier"`
	SubscriptionTier string `json:"subscriptionTier"`
}

func (r uploadRequest) mimeType() string {
	if r.MimeType != "" {
		return r.MimeType
	}
	return r.FileType
}

type completeRequest struct {
	FileID   string `json:"fileId"`
	FileSize int64  `json:"fileSize"`
}

type completeMultipartRequest struct {
	UploadID string        `json:"uploadId"`
	FileID   string        `json:"fileId"`
	Parts    []models.Part `json:"parts"`
}

type fileRequest struct {
	FileID   string `json:"fileId"`
	UploadID string `json:"uploadId"`
}

type encryptionMetadataRequest struct {
	FileID       string `json:"fileId"`
	OriginalSize int64  `json:"originalSize"`
}

type limitsRequest struct {
	FileSize         int64  `json:"fileSize"`
	SubscriptionTier string `json:"subscriptionTier"`
	Tier             string `json:"tier"`
}

// requestTier picks the first non-empty of the body fields and the
// X-Subscription-Tier header.
func requestTier(c echo.Context, fields ...string) tier.Tier {
	for _, f := range fields {
		if f != "" {
			return tier.Parse(f)
		}
	}
	return tier.Parse(c.Request().Header.Get(common.TierHeaderName))
}

func (s *Server) issue(c echo.Context, strategy tier.Strategy) (*models.UploadTarget, error) {
	var req uploadRequest
	if err := c.Bind(&req); err != nil {
		return nil, fmt.Errorf("%w: malformed body", common.ErrInvalidRequest)
	}
	if strings.TrimSpace(req.FileName) == "" {
		return nil, fmt.Errorf("%w: fileName is required", common.ErrInvalidRequest)
	}

	return s.uploads.RequestUpload(c.Request().Context(), services.UploadRequest{
		FileName: req.FileName,
		MimeType: req.mimeType(),
		Size:     req.FileSize,
		Tier:     requestTier(c, req.Tier, req.SubscriptionTier),
		ClientID: c.Request().Header.Get(common.ClientIDHeaderName),
		Strategy: strategy,
	})
}

// handleUploadURL handles POST /s3/upload-url.
func (s *Server) handleUploadURL(c echo.Context) error {
	target, err := s.issue(c, tier.SinglePart)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"uploadUrl":  target.URL,
		"fileId":     target.FileID,
		"storageKey": target.StorageKey,
		"expiresAt":  target.ExpiresAt,
	})
}

// handleMultipartUpload handles POST /s3/multipart-upload.
func (s *Server) handleMultipartUpload(c echo.Context) error {
	target, err := s.issue(c, tier.Multipart)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"uploadId":  target.UploadID,
		"fileId":    target.FileID,
		"partUrls":  target.PartURLs,
		"partSize":  target.PartSize,
		"bucket":    target.Bucket,
		"key":       target.StorageKey,
		"expiresAt": target.ExpiresAt,
	})
}

// handleUploadComplete handles POST /s3/upload-complete.
func (s *Server) handleUploadComplete(c echo.Context) error {
	var req completeRequest
	if err := c.Bind(&req); err != nil || req.FileID == "" {
		return badRequest(c, "fileId is required")
	}
	if err := s.uploads.CompleteUpload(c.Request().Context(), req.FileID, req.FileSize); err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// handleCompleteMultipart handles POST /s3/complete-multipart.
func (s *Server) handleCompleteMultipart(c echo.Context) error {
	var req completeMultipartRequest
	if err := c.Bind(&req); err != nil || req.FileID == "" || req.UploadID == "" || req.Parts == nil {
		return badRequest(c, "uploadId, fileId, and parts are required")
	}

	res, err := s.uploads.CompleteMultipart(c.Request().Context(), req.FileID, req.UploadID, req.Parts)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"fileId":       res.FileID,
		"downloadLink": res.DownloadLink,
		"fileName":     res.FileName,
		"fileSize":     res.FileSize,
		"expiresAt":    res.ExpiresAt,
	})
}

// handleCancelMultipart handles POST /s3/cancel-multipart. It always
// succeeds once the request is well-formed.
func (s *Server) handleCancelMultipart(c echo.Context) error {
	var req fileRequest
	if err := c.Bind(&req); err != nil || req.FileID == "" || req.UploadID == "" {
		return badRequest(c, "uploadId and fileId are required")
	}
	s.uploads.AbortMultipart(c.Request().Context(), req.FileID, req.UploadID)
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// handleCancelUpload handles POST /s3/cancel-upload.
func (s *Server) handleCancelUpload(c echo.Context) error {
	var req fileRequest
	if err := c.Bind(&req); err != nil || req.FileID == "" {
		return badRequest(c, "fileId is required")
	}
	if err := s.uploads.CancelUpload(c.Request().Context(), req.FileID); err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// handleDownload handles GET /download/:fileId by redirecting to a signed URL.
func (s *Server) handleDownload(c echo.Context) error {
	d, err := s.uploads.ResolveDownload(c.Request().Context(), c.Param("fileId"))
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.Redirect(http.StatusFound, d.URL)
}

// handleDownloadURL handles POST /s3/download-url.
func (s *Server) handleDownloadURL(c echo.Context) error {
	var req fileRequest
	if err := c.Bind(&req); err != nil || req.FileID == "" {
		return badRequest(c, "fileId is required")
	}
	d, err := s.uploads.ResolveDownload(c.Request().Context(), req.FileID)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"url":       d.URL,
		"expiresIn": int64(d.ExpiresIn / time.Second),
		"fileName":  d.FileName,
	})
}

// handleFileInfo handles GET /files/:fileId.
func (s *Server) handleFileInfo(c echo.Context) error {
	f, err := s.uploads.FileInfo(c.Request().Context(), c.Param("fileId"))
	if err != nil {
		return s.mapServiceError(c, err)
	}

	body := echo.Map{
		"fileId":        f.ID,
		"fileName":      f.OriginalName,
		"fileSize":      f.Size,
		"mimeType":      f.MimeType,
		"status":        f.Status,
		"uploadDate":    f.UploadDate,
		"expiresAt":     f.ExpiresAt,
		"downloadCount": f.DownloadCount,
		"downloadLink":  s.uploads.DownloadLink(f.ID),
	}
	if f.OriginalSize != nil {
		body["originalSize"] = *f.OriginalSize
	}
	return c.JSON(http.StatusOK, body)
}

// handleEncryptionMetadata handles POST /store-encryption-metadata.
func (s *Server) handleEncryptionMetadata(c echo.Context) error {
	var req encryptionMetadataRequest
	if err := c.Bind(&req); err != nil || req.FileID == "" {
		return badRequest(c, "fileId and originalSize are required")
	}
	if err := s.uploads.StoreEncryptionMetadata(c.Request().Context(), req.FileID, req.OriginalSize); err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// handleCheckLimits handles POST /check-upload-limits.
func (s *Server) handleCheckLimits(c echo.Context) error {
	var req limitsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	t := requestTier(c, req.SubscriptionTier, req.Tier)

	limits, err := s.uploads.CheckLimits(req.FileSize, t)
	if err != nil {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{
			"error": "File too large",
			"message": fmt.Sprintf("Your %s plan has a %s file size limit. The selected file is %s.",
				t, tier.FormatBytes(limits.MaxFileSize), tier.FormatBytes(req.FileSize)),
			"currentTier": t,
			"maxFileSize": limits.MaxFileSize,
			"fileSize":    req.FileSize,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"limits":      limits,
		"currentTier": t,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error(ctx, "health check failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "unhealthy", "error": "Service unavailable"})
	}
	n, err := s.uploads.ActiveFiles(ctx)
	if err != nil {
		s.logger.Error(ctx, "health check failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "unhealthy", "error": "Service unavailable"})
	}

	cache := "not configured"
	if s.cache != nil {
		cache = "connected"
		if err := s.cache.Ping(ctx); err != nil {
			cache = "error"
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":    "healthy",
		"timestamp": s.now().UTC(),
		"files":     n,
		"database":  "connected",
		"redis":     cache,
	})
}
