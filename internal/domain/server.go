package domain

import (
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// MaxNameLength bounds server and portal config names
const MaxNameLength = 128

// Server represents a registered remote endpoint whose reachability can be probed.
// Liveness is never stored on the record; it is computed per status query.
type Server struct {
	ID   string `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
	IP   string `json:"ip" bson:"ip"`
	Port uint16 `json:"port" bson:"port"`
}

// NewServerID generates a new random server identifier
func NewServerID() string {
	return uuid.NewString()
}

// Address returns the dialable host:port form of the server endpoint
func (s *Server) Address() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(int(s.Port)))
}

// Endpoint returns the key used to enforce (ip, port) uniqueness.
// It is only meaningful after Normalize has canonicalised the IP.
func (s *Server) Endpoint() string {
	return s.Address()
}

// Normalize validates the server and rewrites its ID and IP into canonical form.
func (s *Server) Normalize() error {
	id, err := ParseID("id", s.ID)
	if err != nil {
		return err
	}
	s.ID = id

	s.Name = strings.TrimSpace(s.Name)
	if len(s.Name) > MaxNameLength {
		return NewValidationError("name", "must not exceed %d characters", MaxNameLength)
	}

	ip, err := ParseIP(s.IP)
	if err != nil {
		return err
	}
	s.IP = ip

	if s.Port == 0 {
		return NewValidationError("port", "must be between 1 and 65535")
	}
	return nil
}

// ParseID validates a UUID and returns its canonical lowercase form.
func ParseID(field, id string) (string, error) {
	if id == "" {
		return "", NewValidationError(field, "is required")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", NewValidationError(field, "%q is not a valid UUID", id)
	}
	return parsed.String(), nil
}

// ParseIP validates an IPv4 or IPv6 literal and returns its canonical text form.
// Hostnames are rejected.
func ParseIP(ip string) (string, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return "", NewValidationError("ip", "is required")
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "", NewValidationError("ip", "%q is not a valid IP address", ip)
	}
	return addr.String(), nil
}

// PortFromInt converts a decoded JSON port into a uint16, rejecting 0 and out-of-range values.
func PortFromInt(port int) (uint16, error) {
	if port < 1 || port > 65535 {
		return 0, NewValidationError("port", "must be between 1 and 65535, got %d", port)
	}
	return uint16(port), nil
}
