package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sirosfoundation/glados-registry/internal/domain"
	"github.com/sirosfoundation/glados-registry/internal/storage"
)

// PortalRequest is the body of portal create and update requests. Numeric
// fields are decoded wide and range-checked so that out-of-range values are
// reported as validation errors instead of decode failures.
type PortalRequest struct {
	Index           *int64 `json:"index"`
	FrameBlockID    int    `json:"frameBlockId"`
	LightWithItemID int    `json:"lightWithItemId"`
	ColorB          int    `json:"color_b"`
	ColorG          int    `json:"color_g"`
	ColorR          int    `json:"color_r"`
	ConfigID        string `json:"configId"`
}

// toDomain converts the request. pathIndex is used when the body omits the
// index; it is nil for create requests, where the index is mandatory.
func (r *PortalRequest) toDomain(pathIndex *uint32) (*domain.Portal, error) {
	portal := &domain.Portal{
		FrameBlockID:    r.FrameBlockID,
		LightWithItemID: r.LightWithItemID,
		ConfigID:        r.ConfigID,
	}

	switch {
	case r.Index != nil:
		index, err := domain.PortalIndexFromInt(*r.Index)
		if err != nil {
			return nil, err
		}
		portal.Index = index
	case pathIndex != nil:
		portal.Index = *pathIndex
	default:
		return nil, domain.NewValidationError("index", "is required")
	}

	var err error
	if portal.ColorB, err = domain.ColorFromInt("color_b", r.ColorB); err != nil {
		return nil, err
	}
	if portal.ColorG, err = domain.ColorFromInt("color_g", r.ColorG); err != nil {
		return nil, err
	}
	if portal.ColorR, err = domain.ColorFromInt("color_r", r.ColorR); err != nil {
		return nil, err
	}
	return portal, nil
}

// portalIndex parses the :index path parameter. A value that is not a valid
// index cannot name a portal.
func portalIndex(c *gin.Context) (uint32, error) {
	index, err := strconv.ParseUint(c.Param("index"), 10, 32)
	if err != nil {
		return 0, storage.ErrNotFound
	}
	return uint32(index), nil
}

// ListPortalConfigs returns every portal config in creation order
func (h *Handlers) ListPortalConfigs(c *gin.Context) {
	configs, err := h.services.PortalConfig.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list portal configs")
		return
	}
	if configs == nil {
		configs = []*domain.PortalConfig{}
	}
	c.JSON(http.StatusOK, configs)
}

// GetPortalConfig returns a single portal config
func (h *Handlers) GetPortalConfig(c *gin.Context) {
	cfg, err := h.services.PortalConfig.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get portal config")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// CreatePortalConfig creates a new portal config
func (h *Handlers) CreatePortalConfig(c *gin.Context) {
	var req domain.PortalConfig
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.services.PortalConfig.Create(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Failed to create portal config")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdatePortalConfig replaces a portal config
func (h *Handlers) UpdatePortalConfig(c *gin.Context) {
	var req domain.PortalConfig
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.services.PortalConfig.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.respondError(c, err, "Failed to update portal config")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeletePortalConfig deletes a portal config that no portal references
func (h *Handlers) DeletePortalConfig(c *gin.Context) {
	if err := h.services.PortalConfig.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "Failed to delete portal config")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPortals returns every portal in creation order
func (h *Handlers) ListPortals(c *gin.Context) {
	portals, err := h.services.Portal.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list portals")
		return
	}
	if portals == nil {
		portals = []*domain.Portal{}
	}
	c.JSON(http.StatusOK, portals)
}

// GetPortal returns a single portal
func (h *Handlers) GetPortal(c *gin.Context) {
	index, err := portalIndex(c)
	if err != nil {
		h.respondError(c, err, "Failed to get portal")
		return
	}

	portal, err := h.services.Portal.Get(c.Request.Context(), index)
	if err != nil {
		h.respondError(c, err, "Failed to get portal")
		return
	}
	c.JSON(http.StatusOK, portal)
}

// CreatePortal creates a new portal bound to an existing config
func (h *Handlers) CreatePortal(c *gin.Context) {
	var req PortalRequest
	if !bindJSON(c, &req) {
		return
	}
	portal, err := req.toDomain(nil)
	if err != nil {
		h.respondError(c, err, "Failed to create portal")
		return
	}

	created, err := h.services.Portal.Create(c.Request.Context(), portal)
	if err != nil {
		h.respondError(c, err, "Failed to create portal")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdatePortal replaces a portal's attributes
func (h *Handlers) UpdatePortal(c *gin.Context) {
	index, err := portalIndex(c)
	if err != nil {
		h.respondError(c, err, "Failed to update portal")
		return
	}

	var req PortalRequest
	if !bindJSON(c, &req) {
		return
	}
	portal, err := req.toDomain(&index)
	if err != nil {
		h.respondError(c, err, "Failed to update portal")
		return
	}

	updated, err := h.services.Portal.Update(c.Request.Context(), index, portal)
	if err != nil {
		h.respondError(c, err, "Failed to update portal")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeletePortal deletes a portal
func (h *Handlers) DeletePortal(c *gin.Context) {
	index, err := portalIndex(c)
	if err != nil {
		h.respondError(c, err, "Failed to delete portal")
		return
	}

	if err := h.services.Portal.Delete(c.Request.Context(), index); err != nil {
		h.respondError(c, err, "Failed to delete portal")
		return
	}
	c.Status(http.StatusNoContent)
}
