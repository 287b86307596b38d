package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"
	"github.com/reqboard/reqboard/internal/importer"
	"github.com/reqboard/reqboard/internal/services"
	"github.com/reqboard/reqboard/pkg/response"
	"gorm.io/gorm"
)

type ImportHandler struct {
	importService *services.ImportService
}

func NewImportHandler(db *gorm.DB) *ImportHandler {
	return &ImportHandler{
		importService: services.NewImportService(db),
	}
}

// readUpload buffers the uploaded spreadsheet fully in memory. Nothing is
// written to disk, so there is never a temp file to clean up.
func readUpload(file *multipart.FileHeader) (*bytes.Reader, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func parseMapping(c *gin.Context) (map[string]string, error) {
	raw := c.PostForm("mapping")
	if raw == "" {
		return nil, errors.New("mapping form field is required")
	}

	var mapping map[string]string
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return nil, errors.New("mapping must be a JSON object of field to column header")
	}
	return mapping, nil
}

// ListHeaders returns the column headers of an uploaded spreadsheet, in
// sheet order, for building the field mapping UI
// POST /api/import/headers
func (h *ImportHandler) ListHeaders(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	file, err := readUpload(fileHeader)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	headers, err := importer.ListHeaders(file)
	if err != nil {
		if errors.Is(err, importer.ErrInvalidFile) {
			response.BadRequest(c, "file is not a valid spreadsheet")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"headers": headers})
}

// Preview classifies the upload into inserts, updates and errored rows
// without touching storage
// POST /api/import/preview
func (h *ImportHandler) Preview(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	mapping, err := parseMapping(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	file, err := readUpload(fileHeader)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	result, err := h.importService.Preview(file, mapping)
	if err != nil {
		h.importError(c, err)
		return
	}

	response.Success(c, result)
}

// Commit applies the upload to storage, extending the schema for unknown
// mapped fields first
// POST /api/import/commit
func (h *ImportHandler) Commit(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	mapping, err := parseMapping(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	file, err := readUpload(fileHeader)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	result, err := h.importService.Commit(file, mapping)
	if err != nil {
		// A mid-batch abort still returns the partial result so the caller
		// can see the batch id and how many rows were applied.
		if result != nil {
			if errors.Is(err, services.ErrBadRowValue) {
				response.BadRequestData(c, err.Error(), result)
			} else {
				response.ServerErrorData(c, err.Error(), result)
			}
			return
		}
		h.importError(c, err)
		return
	}

	response.Success(c, result)
}

func (h *ImportHandler) importError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, importer.ErrInvalidFile):
		response.BadRequest(c, "file is not a valid spreadsheet")
	case errors.Is(err, importer.ErrMissingKeyMapping):
		response.BadRequest(c, "mapping must include the key field")
	case errors.Is(err, services.ErrBadRowValue), errors.Is(err, services.ErrBadFieldName):
		response.BadRequest(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}
