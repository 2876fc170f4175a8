package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bifrost/internal/domain"
)

func def(name, baseURL string, active bool) domain.ServiceDefinition {
	return domain.ServiceDefinition{
		Name:            name,
		BaseURL:         baseURL,
		HealthCheckPath: "/health",
		Timeout:         5 * time.Second,
		IsActive:        active,
	}
}

func TestLookup(t *testing.T) {
	r := New()
	r.Replace([]domain.ServiceDefinition{
		def("svc-a", "http://a:9000", true),
		def("svc-b", "http://b:9000", false),
	})

	tests := []struct {
		name    string
		service string
		wantErr error
	}{
		{"active service", "svc-a", nil},
		{"inactive service", "svc-b", domain.ErrServiceNotFound},
		{"unknown service", "svc-c", domain.ErrServiceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := r.Lookup(tt.service)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Lookup(%q) error = %v, want %v", tt.service, err, tt.wantErr)
			}
			if tt.wantErr == nil && e.Definition.Name != tt.service {
				t.Errorf("Lookup(%q) returned entry for %q", tt.service, e.Definition.Name)
			}
		})
	}
}

func TestNewEntriesStartUnknown(t *testing.T) {
	r := New()
	r.Replace([]domain.ServiceDefinition{def("svc-a", "http://a:9000", true)})

	e, err := r.Lookup("svc-a")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got := e.Health().Status; got != domain.HealthUnknown {
		t.Errorf("new entry status = %v, want %v", got, domain.HealthUnknown)
	}
	if !e.Health().LastCheckedAt.IsZero() {
		t.Error("new entry should have no probe timestamp")
	}
}

func TestReplacePreservesHealth(t *testing.T) {
	r := New()
	r.Replace([]domain.ServiceDefinition{
		def("svc-a", "http://a:9000", true),
		def("svc-b", "http://b:9000", true),
	})

	now := time.Now()
	r.UpdateHealth("svc-a", domain.HealthHealthy, now)
	r.UpdateHealth("svc-b", domain.HealthHealthy, now)

	// svc-a unchanged, svc-b moves to a new base URL, svc-c is new.
	r.Replace([]domain.ServiceDefinition{
		def("svc-a", "http://a:9000", true),
		def("svc-b", "http://b2:9000", true),
		def("svc-c", "http://c:9000", true),
	})

	a, _ := r.Lookup("svc-a")
	if got := a.Health().Status; got != domain.HealthHealthy {
		t.Errorf("unchanged service lost health state: %v", got)
	}
	b, _ := r.Lookup("svc-b")
	if got := b.Health().Status; got != domain.HealthUnknown {
		t.Errorf("relocated service kept stale health state: %v", got)
	}
	c, _ := r.Lookup("svc-c")
	if got := c.Health().Status; got != domain.HealthUnknown {
		t.Errorf("new service status = %v, want unknown", got)
	}
}

func TestReplaceDropsRemoved(t *testing.T) {
	r := New()
	r.Replace([]domain.ServiceDefinition{
		def("svc-a", "http://a:9000", true),
		def("svc-b", "http://b:9000", true),
	})
	r.Replace([]domain.ServiceDefinition{def("svc-a", "http://a:9000", true)})

	if _, err := r.Lookup("svc-b"); !errors.Is(err, domain.ErrServiceNotFound) {
		t.Errorf("removed service still resolvable, err = %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestDeactivationResetsHealth(t *testing.T) {
	r := New()
	r.Replace([]domain.ServiceDefinition{def("svc-a", "http://a:9000", true)})
	r.UpdateHealth("svc-a", domain.HealthHealthy, time.Now())

	// Deactivate, then reactivate: health state must not survive.
	r.Replace([]domain.ServiceDefinition{def("svc-a", "http://a:9000", false)})
	r.Replace([]domain.ServiceDefinition{def("svc-a", "http://a:9000", true)})

	e, _ := r.Lookup("svc-a")
	if got := e.Health().Status; got != domain.HealthUnknown {
		t.Errorf("reactivated service status = %v, want unknown", got)
	}
}

func TestListActive(t *testing.T) {
	r := New()
	r.Replace([]domain.ServiceDefinition{
		def("svc-b", "http://b:9000", true),
		def("svc-a", "http://a:9000", true),
		def("svc-c", "http://c:9000", false),
	})

	active := r.ListActive()
	if len(active) != 2 {
		t.Fatalf("ListActive() returned %d entries, want 2", len(active))
	}
	if active[0].Definition.Name != "svc-a" || active[1].Definition.Name != "svc-b" {
		t.Errorf("ListActive() not sorted by name: %s, %s",
			active[0].Definition.Name, active[1].Definition.Name)
	}
}

func TestUpdateHealthMissingService(t *testing.T) {
	r := New()
	if r.UpdateHealth("ghost", domain.HealthHealthy, time.Now()) {
		t.Error("UpdateHealth on missing service returned true")
	}
}

func TestConcurrentReloadAndLookup(t *testing.T) {
	r := New()
	r.Replace([]domain.ServiceDefinition{def("svc-0", "http://u:9000", true)})

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			defs := make([]domain.ServiceDefinition, 0, 10)
			for j := 0; j < 10; j++ {
				defs = append(defs, def(fmt.Sprintf("svc-%d", j), "http://u:9000", true))
			}
			r.Replace(defs)
			r.UpdateHealth("svc-0", domain.HealthHealthy, time.Now())
		}
		close(stop)
	}()

	for k := 0; k < 4; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				// A reader must always see a complete snapshot: svc-0 is in
				// every generation, so it must always resolve.
				if _, err := r.Lookup("svc-0"); err != nil {
					t.Errorf("Lookup during reload failed: %v", err)
					return
				}
			}
		}()
	}

	wg.Wait()
}
