package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sirosfoundation/glados-registry/internal/domain"
)

// ServerRequest is the body of server register and update requests.
// Port is a pointer so a missing port can be told apart from an invalid one.
type ServerRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IP   string `json:"ip"`
	Port *int   `json:"port"`
}

func (r *ServerRequest) toDomain() (*domain.Server, error) {
	if r.Port == nil {
		return nil, domain.NewValidationError("port", "is required")
	}
	port, err := domain.PortFromInt(*r.Port)
	if err != nil {
		return nil, err
	}
	return &domain.Server{
		ID:   r.ID,
		Name: r.Name,
		IP:   r.IP,
		Port: port,
	}, nil
}

// VerdictResponse is the JSON form of a liveness check result
type VerdictResponse struct {
	ID        string          `json:"id"`
	Status    domain.Liveness `json:"status"`
	Reason    string          `json:"reason"`
	LatencyMS int64           `json:"latency_ms"`
	CheckedAt time.Time       `json:"checked_at"`
}

func newVerdictResponse(report *domain.StatusReport) VerdictResponse {
	return VerdictResponse{
		ID:        report.ServerID,
		Status:    report.Verdict.Status,
		Reason:    report.Verdict.Reason,
		LatencyMS: report.Verdict.Latency.Milliseconds(),
		CheckedAt: report.CheckedAt,
	}
}

// ListServers returns every registered server in registration order
func (h *Handlers) ListServers(c *gin.Context) {
	servers, err := h.services.Server.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list servers")
		return
	}
	if servers == nil {
		servers = []*domain.Server{}
	}
	c.JSON(http.StatusOK, servers)
}

// GetServer returns a single server
func (h *Handlers) GetServer(c *gin.Context) {
	server, err := h.services.Server.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get server")
		return
	}
	c.JSON(http.StatusOK, server)
}

// RegisterServer registers a new server
func (h *Handlers) RegisterServer(c *gin.Context) {
	var req ServerRequest
	if !bindJSON(c, &req) {
		return
	}
	server, err := req.toDomain()
	if err != nil {
		h.respondError(c, err, "Failed to register server")
		return
	}

	registered, err := h.services.Server.Register(c.Request.Context(), server)
	if err != nil {
		h.respondError(c, err, "Failed to register server")
		return
	}
	c.JSON(http.StatusCreated, registered)
}

// UpdateServer replaces a server's name, address and port
func (h *Handlers) UpdateServer(c *gin.Context) {
	var req ServerRequest
	if !bindJSON(c, &req) {
		return
	}
	server, err := req.toDomain()
	if err != nil {
		h.respondError(c, err, "Failed to update server")
		return
	}

	updated, err := h.services.Server.Update(c.Request.Context(), c.Param("id"), server)
	if err != nil {
		h.respondError(c, err, "Failed to update server")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// UnregisterServer deletes a server
func (h *Handlers) UnregisterServer(c *gin.Context) {
	if err := h.services.Server.Unregister(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "Failed to unregister server")
		return
	}
	c.Status(http.StatusNoContent)
}

// ServerStatus probes a single server. An unknown verdict is still a 200.
func (h *Handlers) ServerStatus(c *gin.Context) {
	report, err := h.services.Server.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to check server status")
		return
	}
	c.JSON(http.StatusOK, newVerdictResponse(report))
}

// ServerStatusAll probes every server and returns the verdicts in list order
func (h *Handlers) ServerStatusAll(c *gin.Context) {
	reports, err := h.services.Server.StatusAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to check server status")
		return
	}

	resp := make([]VerdictResponse, 0, len(reports))
	for _, report := range reports {
		resp = append(resp, newVerdictResponse(report))
	}
	c.JSON(http.StatusOK, resp)
}
