package servicefile

import (
	"testing"
	"time"
)

func boolPtr(b bool) *bool { return &b }

func TestMapServices(t *testing.T) {
	mapper := NewMapper(30 * time.Second)

	config := ServicesConfig{Services: []ServiceProps{
		{
			Name:               "qshing-server",
			BaseURL:            "https://qshing-server.example.com",
			HealthCheckPath:    "/healthz",
			Timeout:            "10s",
			RateLimitPerMinute: 100,
		},
		{
			Name:    "hello",
			BaseURL: "http://hello:9000",
			Active:  boolPtr(false),
		},
	}}

	defs, err := mapper.MapServices(config)
	if err != nil {
		t.Fatalf("MapServices failed: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}

	first := defs[0]
	if first.Name != "qshing-server" {
		t.Errorf("name = %q", first.Name)
	}
	if first.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", first.Timeout)
	}
	if first.HealthCheckPath != "/healthz" {
		t.Errorf("health path = %q", first.HealthCheckPath)
	}
	if !first.IsActive {
		t.Error("active should default to true")
	}

	second := defs[1]
	if second.Timeout != 30*time.Second {
		t.Errorf("default timeout not applied: %v", second.Timeout)
	}
	if second.HealthCheckPath != "/health" {
		t.Errorf("default health path not applied: %q", second.HealthCheckPath)
	}
	if second.IsActive {
		t.Error("explicit active: false was ignored")
	}
}

func TestMapServicesValidation(t *testing.T) {
	mapper := NewMapper(30 * time.Second)

	tests := []struct {
		name   string
		config ServicesConfig
	}{
		{
			name:   "empty config",
			config: ServicesConfig{},
		},
		{
			name: "missing name",
			config: ServicesConfig{Services: []ServiceProps{
				{BaseURL: "http://a:9000"},
			}},
		},
		{
			name: "missing base url",
			config: ServicesConfig{Services: []ServiceProps{
				{Name: "a"},
			}},
		},
		{
			name: "relative base url",
			config: ServicesConfig{Services: []ServiceProps{
				{Name: "a", BaseURL: "not-a-url"},
			}},
		},
		{
			name: "duplicate name",
			config: ServicesConfig{Services: []ServiceProps{
				{Name: "a", BaseURL: "http://a:9000"},
				{Name: "a", BaseURL: "http://b:9000"},
			}},
		},
		{
			name: "bad timeout",
			config: ServicesConfig{Services: []ServiceProps{
				{Name: "a", BaseURL: "http://a:9000", Timeout: "soon"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mapper.MapServices(tt.config); err == nil {
				t.Error("MapServices() should have failed")
			}
		})
	}
}
