package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestParseIP(t *testing.T) {
	tests := []struct {
		name    string
		ip      string
		want    string
		wantErr bool
	}{
		{name: "ipv4", ip: "10.0.0.5", want: "10.0.0.5"},
		{name: "ipv4 with spaces", ip: " 127.0.0.1 ", want: "127.0.0.1"},
		{name: "ipv6 loopback", ip: "::1", want: "::1"},
		{name: "ipv6 expanded", ip: "2001:0db8:0000:0000:0000:0000:0000:0001", want: "2001:db8::1"},
		{name: "ipv6 uppercase", ip: "2001:DB8::1", want: "2001:db8::1"},
		{name: "empty", ip: "", wantErr: true},
		{name: "hostname", ip: "localhost", wantErr: true},
		{name: "out of range octet", ip: "256.0.0.1", wantErr: true},
		{name: "with port", ip: "127.0.0.1:80", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIP(tt.ip)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIP(%q) error = %v, wantErr %v", tt.ip, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseIP(%q) = %q, want %q", tt.ip, got, tt.want)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	got, err := ParseID("id", "6BA7B810-9DAD-11D1-80B4-00C04FD430C8")
	if err != nil {
		t.Fatalf("ParseID() error = %v", err)
	}
	if got != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Errorf("ParseID() = %q, want lowercase form", got)
	}

	for _, bad := range []string{"", "nope", "6ba7b810-9dad-11d1-80b4"} {
		_, err := ParseID("id", bad)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("ParseID(%q) error = %v, want ValidationError", bad, err)
			continue
		}
		if vErr.Field != "id" {
			t.Errorf("ParseID(%q) field = %q, want id", bad, vErr.Field)
		}
	}
}

func TestPortFromInt(t *testing.T) {
	for _, port := range []int{1, 80, 65535} {
		got, err := PortFromInt(port)
		if err != nil || int(got) != port {
			t.Errorf("PortFromInt(%d) = %d, %v", port, got, err)
		}
	}
	for _, port := range []int{-1, 0, 65536} {
		if _, err := PortFromInt(port); !errors.Is(err, ErrValidation) {
			t.Errorf("PortFromInt(%d) error = %v, want ErrValidation", port, err)
		}
	}
}

func TestServer_Normalize(t *testing.T) {
	s := &Server{
		ID:   "6BA7B810-9DAD-11D1-80B4-00C04FD430C8",
		Name: "  lobby ",
		IP:   "2001:DB8::1",
		Port: 25565,
	}
	if err := s.Normalize(); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if s.ID != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Errorf("ID = %q", s.ID)
	}
	if s.Name != "lobby" {
		t.Errorf("Name = %q, want trimmed", s.Name)
	}
	if s.IP != "2001:db8::1" {
		t.Errorf("IP = %q, want canonical", s.IP)
	}
	if got := s.Address(); got != "[2001:db8::1]:25565" {
		t.Errorf("Address() = %q", got)
	}
}

func TestServer_NormalizeErrors(t *testing.T) {
	valid := func() *Server {
		return &Server{ID: NewServerID(), IP: "127.0.0.1", Port: 80}
	}

	tests := []struct {
		name   string
		mutate func(*Server)
		field  string
	}{
		{"missing id", func(s *Server) { s.ID = "" }, "id"},
		{"bad ip", func(s *Server) { s.IP = "example.com" }, "ip"},
		{"zero port", func(s *Server) { s.Port = 0 }, "port"},
		{"long name", func(s *Server) { s.Name = strings.Repeat("x", MaxNameLength+1) }, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := s.Normalize()
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Normalize() error = %v, want ValidationError", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}
