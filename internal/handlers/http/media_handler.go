package http

import (
	stderrors "errors"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"roomchat/internal/core/domain"
	"roomchat/internal/core/services"
	"roomchat/pkg/errors"
	"roomchat/pkg/utils"
	"roomchat/pkg/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipartOverhead is the allowance for form boundaries and headers on top
// of the file itself.
const multipartOverhead = 1 << 20

type MediaHandler struct {
	viewOnce    *services.ViewOnceStore
	uploadDir   string
	viewOnceDir string
	maxBytes    int64
	logger      *zap.SugaredLogger
}

func NewMediaHandler(viewOnce *services.ViewOnceStore, uploadDir, viewOnceDir string, maxBytes int64, logger *zap.SugaredLogger) (*MediaHandler, error) {
	for _, dir := range []string{uploadDir, viewOnceDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &MediaHandler{
		viewOnce:    viewOnce,
		uploadDir:   uploadDir,
		viewOnceDir: viewOnceDir,
		maxBytes:    maxBytes,
		logger:      logger,
	}, nil
}

func (h *MediaHandler) SetupRoutes(router gin.IRouter) {
	router.POST("/upload", h.Upload)
	router.GET("/view/:token", h.View)
	router.Static("/uploads", h.uploadDir)
}

// Upload stores a multipart "file". With view_once=true the file is kept
// outside the public upload directory and reachable only through a token.
func (h *MediaHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			c.Error(errors.NewTooLargeError(h.maxBytes))
			return
		}
		c.Error(errors.NewInvalidInputError("multipart field \"file\" is required"))
		return
	}
	if fh.Size > h.maxBytes {
		c.Error(errors.NewTooLargeError(h.maxBytes))
		return
	}

	viewOnce, _ := strconv.ParseBool(c.PostForm("view_once"))
	if viewOnce {
		h.uploadViewOnce(c, fh)
		return
	}

	name, err := validation.SanitizeFilename(fh.Filename)
	if err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}
	if err := c.SaveUploadedFile(fh, filepath.Join(h.uploadDir, name)); err != nil {
		c.Error(storeFailed(err))
		return
	}

	h.logger.Infow("file uploaded", "name", name, "size", fh.Size)
	c.JSON(http.StatusOK, gin.H{"url": "/uploads/" + name})
}

func (h *MediaHandler) uploadViewOnce(c *gin.Context, fh *multipart.FileHeader) {
	dst := filepath.Join(h.viewOnceDir, utils.GenerateStoredName(fh.Filename))
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		c.Error(storeFailed(err))
		return
	}

	token, err := h.viewOnce.Issue(c.Request.Context(), dst)
	if err != nil {
		_ = os.Remove(dst)
		c.Error(errors.WrapError(err, errors.ErrCodeInternal, "failed to issue view-once token", http.StatusInternalServerError))
		return
	}

	h.logger.Infow("view-once file uploaded", "size", fh.Size)
	c.JSON(http.StatusOK, gin.H{
		"url":   "/view/" + token,
		"token": token,
	})
}

func storeFailed(cause error) *errors.AppError {
	appErr := errors.NewInternalError("failed to store file")
	appErr.Cause = cause
	return appErr
}

// View streams a view-once file and deletes it afterwards. Every miss is a 404.
func (h *MediaHandler) View(c *gin.Context) {
	redemption, err := h.viewOnce.Redeem(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.Error(err)
		return
	}
	defer func() {
		_ = redemption.Close()
	}()

	f, err := os.Open(redemption.Path)
	if err != nil {
		c.Error(domain.ErrFileMissing)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		c.Error(domain.ErrFileMissing)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(redemption.Path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Range and conditional headers are ignored; a redemption delivers the
	// whole file.
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, f, nil)
}
