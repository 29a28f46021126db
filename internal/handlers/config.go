package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/projection"
)

// ConfigStore is satisfied by *configstore.Store
type ConfigStore interface {
	Get(ctx context.Context, key string) (*models.Document, error)
	Put(ctx context.Context, key string, value json.RawMessage, expectedVersion int, updatedBy string) (*models.Document, error)
	History(ctx context.Context, key string, limit int) ([]*models.Revision, error)
	Revision(ctx context.Context, key string, version int) (*models.Revision, error)
}

// Projector is satisfied by *projection.Evaluator
type Projector interface {
	Project(expression string, value json.RawMessage) (json.RawMessage, error)
}

// ConfigHandler handles config document API requests
type ConfigHandler struct {
	store     ConfigStore
	projector Projector
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(store ConfigStore, projector Projector) *ConfigHandler {
	return &ConfigHandler{store: store, projector: projector}
}

// DocumentResponse is the body of a document read
type DocumentResponse struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Version   int             `json:"version"`
	UpdatedAt time.Time       `json:"updatedAt"`
	UpdatedBy string          `json:"updatedBy,omitempty"`
}

// PutDocumentRequest is the body of a document write. A missing
// expectedVersion is treated as 0.
type PutDocumentRequest struct {
	Value           json.RawMessage `json:"value"`
	ExpectedVersion int             `json:"expectedVersion"`
}

// PutDocumentResponse is the body of a committed write
type PutDocumentResponse struct {
	Key     string `json:"key"`
	Version int    `json:"version"`
}

// RegisterRoutes registers the config routes
func (h *ConfigHandler) RegisterRoutes(g *echo.Group) {
	configs := g.Group("/config")
	configs.GET("/:key", h.Get)
	configs.PUT("/:key", h.Put)
	configs.GET("/:key/revisions", h.ListRevisions)
	configs.GET("/:key/revisions/:version", h.GetRevision)
}

// Get handles GET /config/:key
func (h *ConfigHandler) Get(c echo.Context) error {
	return h.get(c, c.Param("key"))
}

// Put handles PUT /config/:key
func (h *ConfigHandler) Put(c echo.Context) error {
	return h.put(c, c.Param("key"))
}

// ListRevisions handles GET /config/:key/revisions
func (h *ConfigHandler) ListRevisions(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return BadRequest("invalid limit: must be an integer")
		}
		limit = parsed
	}

	revisions, err := h.store.History(ctx, c.Param("key"), limit)
	if err != nil {
		return err
	}

	NoStore(c)
	return SuccessResponse(c, revisions)
}

// GetRevision handles GET /config/:key/revisions/:version
func (h *ConfigHandler) GetRevision(c echo.Context) error {
	ctx := c.Request().Context()

	version, err := ParseVersion(c, "version")
	if err != nil {
		return err
	}

	revision, err := h.store.Revision(ctx, c.Param("key"), version)
	if err != nil {
		return err
	}

	return SuccessResponse(c, revision)
}

func (h *ConfigHandler) get(c echo.Context, key string) error {
	ctx := c.Request().Context()

	doc, err := h.store.Get(ctx, key)
	if err != nil {
		return err
	}

	value := doc.Value
	if expression := c.QueryParam("select"); expression != "" && h.projector != nil {
		value, err = h.projector.Project(expression, doc.Value)
		if err != nil {
			if errors.Is(err, projection.ErrInvalidExpression) {
				return BadRequest(err.Error())
			}
			return err
		}
	}

	NoStore(c)
	SetDocumentVersion(c, doc.Version)
	return SuccessResponse(c, DocumentResponse{
		Key:       doc.Key,
		Value:     value,
		Version:   doc.Version,
		UpdatedAt: doc.UpdatedAt,
		UpdatedBy: doc.UpdatedBy,
	})
}

func (h *ConfigHandler) put(c echo.Context, key string) error {
	ctx := c.Request().Context()

	var req PutDocumentRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	doc, err := h.store.Put(ctx, key, req.Value, req.ExpectedVersion, GetActor(c))
	if err != nil {
		return WriteError(c, err)
	}

	NoStore(c)
	SetDocumentVersion(c, doc.Version)
	return SuccessResponse(c, PutDocumentResponse{
		Key:     doc.Key,
		Version: doc.Version,
	})
}
