package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/consultly/consultly-api/internal/service"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
	"github.com/consultly/consultly-api/pkg/response"
)

// ExportHandler exposes booking ledger export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// GenerateLedger godoc
// @Summary Export a consultant's booking ledger
// @Tags Exports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Consultant ID"
// @Param from query string true "RFC3339 lower bound on start"
// @Param to query string true "RFC3339 upper bound on start"
// @Param format query string true "csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /consultants/{id}/export [post]
func (h *ExportHandler) GenerateLedger(c *gin.Context) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be RFC3339"))
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be RFC3339"))
		return
	}

	result, err := h.exports.GenerateLedger(c.Request.Context(), actorFromContext(c), c.Param("id"),
		from, to, service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download a generated ledger via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.exports.OpenDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export"))
		return
	}

	name := filepath.Base(file.Name())
	mimeType := "text/csv"
	if filepath.Ext(name) == ".pdf" {
		mimeType = "application/pdf"
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), mimeType, file, nil)
}
