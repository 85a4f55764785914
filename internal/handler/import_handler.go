package handler

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avelkin/linkvault/internal/archive"
	"github.com/avelkin/linkvault/internal/pkg/errcode"
	"github.com/avelkin/linkvault/internal/pkg/response"
	"github.com/avelkin/linkvault/internal/service"
)

type ImportHandler struct {
	imports       *service.ImportService
	maxUploadSize int64
}

func NewImportHandler(imports *service.ImportService, maxUploadSize int64) *ImportHandler {
	return &ImportHandler{imports: imports, maxUploadSize: maxUploadSize}
}

// Start accepts a multipart form: the legacy export payload under "export",
// an optional archive bundle zip under "archives", plus the destination
// coordinates as plain fields.
func (h *ImportHandler) Start(c *gin.Context) {
	data, err := h.readUpload(c, "export", ".json")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, err.Error())
		return
	}

	var archives archive.Source
	if _, err := c.FormFile("archives"); err == nil {
		bundle, err := h.readUpload(c, "archives", ".zip")
		if err != nil {
			response.Error(c, errcode.ErrInvalidFile, err.Error())
			return
		}
		archives, err = archive.FromZipBytes(bundle)
		if err != nil {
			response.Error(c, errcode.ErrInvalidFile, "archive bundle is not a valid zip")
			return
		}
	}

	run, err := h.imports.Start(c.Request.Context(), getUserID(c), service.StartInput{
		Data:          data,
		PocketBaseURL: c.PostForm("pocketbase_url"),
		UserToken:     c.PostForm("user_token"),
		TargetUserID:  c.PostForm("user_id"),
		Archives:      archives,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, run)
}

func (h *ImportHandler) Status(c *gin.Context) {
	runID := c.Param("id")
	if runID == "" {
		response.Error(c, errcode.ErrInvalid, "run id required")
		return
	}
	run, err := h.imports.Status(c.Request.Context(), getUserID(c), runID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, run)
}

func (h *ImportHandler) List(c *gin.Context) {
	limit, _ := strconv.ParseUint(c.DefaultQuery("limit", "20"), 10, 32)
	offset, _ := strconv.ParseUint(c.DefaultQuery("offset", "0"), 10, 32)
	runs, err := h.imports.List(c.Request.Context(), getUserID(c), uint(limit), uint(offset))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"runs": runs})
}

func (h *ImportHandler) readUpload(c *gin.Context, field string, wantExt string) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s file is required", field)
	}
	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		return nil, fmt.Errorf("%s file too large (max %s)", field, formatUploadLimit(h.maxUploadSize))
	}
	if wantExt != "" && strings.ToLower(filepath.Ext(file.Filename)) != wantExt {
		return nil, fmt.Errorf("%s file must be %s", field, wantExt)
	}
	opened, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file", field)
	}
	defer opened.Close()
	data, err := io.ReadAll(opened)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file", field)
	}
	return data, nil
}
