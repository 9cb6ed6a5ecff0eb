package service

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sirosfoundation/glados-registry/internal/domain"
	"github.com/sirosfoundation/glados-registry/internal/status"
	"github.com/sirosfoundation/glados-registry/internal/storage"
	"github.com/sirosfoundation/glados-registry/internal/storage/memory"
	"github.com/sirosfoundation/glados-registry/pkg/config"
)

func newTestServices(t *testing.T) *Services {
	t.Helper()
	cfg := &config.Config{
		Status: config.StatusConfig{TimeoutMS: 500, Concurrency: 4},
	}
	checker := status.NewChecker(cfg.Status.Timeout(), zap.NewNop())
	return NewServices(memory.NewStore(), checker, cfg, zap.NewNop())
}

func TestNewServices(t *testing.T) {
	services := newTestServices(t)

	if services.Server == nil {
		t.Error("expected Server service to be initialized")
	}
	if services.PortalConfig == nil {
		t.Error("expected PortalConfig service to be initialized")
	}
	if services.Portal == nil {
		t.Error("expected Portal service to be initialized")
	}
	if err := services.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestServerService_Register(t *testing.T) {
	svc := newTestServices(t).Server
	ctx := context.Background()

	got, err := svc.Register(ctx, &domain.Server{Name: " lobby ", IP: "127.0.0.1", Port: 25565})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if got.ID == "" {
		t.Error("expected generated ID")
	}
	if got.Name != "lobby" {
		t.Errorf("Name = %q, want %q", got.Name, "lobby")
	}

	fetched, err := svc.Get(ctx, got.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *fetched != *got {
		t.Errorf("Get() = %+v, want %+v", fetched, got)
	}
}

func TestServerService_Register_SuppliedIDIsCanonicalised(t *testing.T) {
	svc := newTestServices(t).Server

	got, err := svc.Register(context.Background(), &domain.Server{
		ID:   "6F9619FF-8B86-D011-B42D-00C04FC964FF",
		IP:   "127.0.0.1",
		Port: 1,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if got.ID != "6f9619ff-8b86-d011-b42d-00c04fc964ff" {
		t.Errorf("ID = %q, want lowercase form", got.ID)
	}
}

func TestServerService_Register_Validation(t *testing.T) {
	svc := newTestServices(t).Server

	tests := []struct {
		name   string
		server domain.Server
		field  string
	}{
		{"hostname", domain.Server{IP: "example.com", Port: 80}, "ip"},
		{"empty ip", domain.Server{IP: "", Port: 80}, "ip"},
		{"malformed ip", domain.Server{IP: "300.1.1.1", Port: 80}, "ip"},
		{"port zero", domain.Server{IP: "127.0.0.1", Port: 0}, "port"},
		{"bad id", domain.Server{ID: "not-a-uuid", IP: "127.0.0.1", Port: 80}, "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := tt.server
			_, err := svc.Register(context.Background(), &server)

			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestServerService_Register_CanonicalIPConflict(t *testing.T) {
	svc := newTestServices(t).Server
	ctx := context.Background()

	if _, err := svc.Register(ctx, &domain.Server{IP: "2001:db8::1", Port: 80}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := svc.Register(ctx, &domain.Server{IP: "2001:0db8:0000::0001", Port: 80})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict for the same address spelled differently, got %v", err)
	}
}

func TestServerService_Update(t *testing.T) {
	svc := newTestServices(t).Server
	ctx := context.Background()

	created, err := svc.Register(ctx, &domain.Server{Name: "a", IP: "127.0.0.1", Port: 1000})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, &domain.Server{Name: "b", IP: "10.0.0.1", Port: 2000})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "b", updated.Name)
	assert.Equal(t, "10.0.0.1", updated.IP)

	// Matching body ID is accepted
	_, err = svc.Update(ctx, created.ID, &domain.Server{ID: created.ID, IP: "10.0.0.1", Port: 2001})
	assert.NoError(t, err)

	// Differing body ID is rejected
	_, err = svc.Update(ctx, created.ID, &domain.Server{ID: domain.NewServerID(), IP: "10.0.0.1", Port: 2001})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Update(ctx, domain.NewServerID(), &domain.Server{IP: "10.0.0.1", Port: 3000})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Update(ctx, "garbage", &domain.Server{IP: "10.0.0.1", Port: 3000})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestServerService_Unregister(t *testing.T) {
	svc := newTestServices(t).Server
	ctx := context.Background()

	created, err := svc.Register(ctx, &domain.Server{IP: "127.0.0.1", Port: 1000})
	require.NoError(t, err)

	require.NoError(t, svc.Unregister(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, svc.Unregister(ctx, created.ID), storage.ErrNotFound)
	assert.ErrorIs(t, svc.Unregister(ctx, "not-a-uuid"), storage.ErrNotFound)
}

func TestServerService_ConcurrentRegistration(t *testing.T) {
	svc := newTestServices(t).Server
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, &domain.Server{IP: "127.0.0.1", Port: 9999})
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, storage.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func listen(t *testing.T) (net.Listener, uint16) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return ln, uint16(port)
}

func closedPort(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	require.NoError(t, ln.Close())
	return uint16(port)
}

func TestServerService_Status(t *testing.T) {
	svc := newTestServices(t).Server
	ctx := context.Background()

	_, livePort := listen(t)
	live, err := svc.Register(ctx, &domain.Server{Name: "live", IP: "127.0.0.1", Port: livePort})
	require.NoError(t, err)
	dead, err := svc.Register(ctx, &domain.Server{Name: "dead", IP: "127.0.0.1", Port: closedPort(t)})
	require.NoError(t, err)

	report, err := svc.Status(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, live.ID, report.ServerID)
	assert.Equal(t, domain.LivenessOnline, report.Verdict.Status)
	assert.False(t, report.CheckedAt.IsZero())

	start := time.Now()
	report, err = svc.Status(ctx, dead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LivenessOffline, report.Verdict.Status)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, err = svc.Status(ctx, domain.NewServerID())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestServerService_StatusAll(t *testing.T) {
	svc := newTestServices(t).Server
	ctx := context.Background()

	_, livePort := listen(t)
	deadPort := closedPort(t)

	live, err := svc.Register(ctx, &domain.Server{Name: "live", IP: "127.0.0.1", Port: livePort})
	require.NoError(t, err)
	ids := []string{live.ID}
	for i := 2; i <= 6; i++ {
		s, err := svc.Register(ctx, &domain.Server{IP: "127.0.0." + strconv.Itoa(i), Port: deadPort})
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}

	reports, err := svc.StatusAll(ctx)
	require.NoError(t, err)
	require.Len(t, reports, len(ids))
	for i, report := range reports {
		assert.Equal(t, ids[i], report.ServerID, "report %d out of order", i)
		if i > 0 {
			assert.NotEqual(t, domain.LivenessOnline, report.Verdict.Status)
		}
	}
	assert.Equal(t, domain.LivenessOnline, reports[0].Verdict.Status)
}

func TestServerService_StatusAll_Empty(t *testing.T) {
	svc := newTestServices(t).Server

	reports, err := svc.StatusAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
}
