package handler

import (
	"net/http"

	"github.com/SachinGupta0206/saas-contracts-dashboard/model"
	"github.com/SachinGupta0206/saas-contracts-dashboard/pkg/logger"
	"github.com/SachinGupta0206/saas-contracts-dashboard/service"
	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	store *service.ContractsStore
}

func NewUploadHandler(store *service.ContractsStore) *UploadHandler {
	return &UploadHandler{store: store}
}

// uploadRow is an upload record with its dialog presentation
type uploadRow struct {
	model.UploadRecord
	SizeLabel string     `json:"size_label"`
	Icon      string     `json:"icon"`
	Label     string     `json:"label"`
	Tone      model.Tone `json:"tone"`
}

type uploadsView struct {
	Uploading bool        `json:"uploading"`
	Files     []uploadRow `json:"uploadedFiles"`
}

func newUploadRows(records []model.UploadRecord) []uploadRow {
	rows := make([]uploadRow, len(records))
	for i, rec := range records {
		rows[i] = uploadRow{
			UploadRecord: rec,
			SizeLabel:    model.FormatFileSize(rec.Size),
			Icon:         rec.Status.Icon(),
			Label:        rec.Status.Label(),
			Tone:         rec.Status.Tone(),
		}
	}
	return rows
}

func newUploadsView(snap model.UploadSnapshot) uploadsView {
	return uploadsView{Uploading: snap.Uploading, Files: newUploadRows(snap.Files)}
}

// Upload accepts a multipart batch under the "files" field. Only names and
// sizes are used; file contents are never read.
func (h *UploadHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	candidates := make([]model.FileCandidate, len(headers))
	for i, fh := range headers {
		candidates[i] = model.FileCandidate{Name: fh.Filename, Size: fh.Size}
	}

	records := h.store.UploadFiles(candidates)

	accepted := make(map[string]int, len(records))
	for _, rec := range records {
		accepted[rec.Name]++
	}
	rejected := []string{}
	for _, cand := range candidates {
		if accepted[cand.Name] > 0 {
			accepted[cand.Name]--
			continue
		}
		rejected = append(rejected, cand.Name)
	}

	if len(records) == 0 {
		logger.Info(c.Request.Context(), "upload batch rejected", "files", len(candidates))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "No supported files",
			"rejected": rejected,
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"accepted": newUploadRows(records),
		"rejected": rejected,
	})
}

// List returns the current upload snapshot
func (h *UploadHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, newUploadsView(h.store.Uploads()))
}

// Clear empties the list; transfers still in flight are discarded when they finish
func (h *UploadHandler) Clear(c *gin.Context) {
	h.store.ClearUploadedFiles()
	c.JSON(http.StatusOK, newUploadsView(h.store.Uploads()))
}

// Events streams a snapshot after every upload change as server-sent events
func (h *UploadHandler) Events(c *gin.Context) {
	updates, cancel := h.store.SubscribeUploads()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			c.SSEvent("uploads", newUploadsView(snap))
			c.Writer.Flush()
		}
	}
}
