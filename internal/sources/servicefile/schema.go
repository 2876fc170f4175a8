package servicefile

// ServicesConfig represents the top-level structure of services.yaml
type ServicesConfig struct {
	Services []ServiceProps `yaml:"services"`
}

// ServiceProps contains the raw properties of one service record as written
// in the file. Optional fields keep pointer types so the mapper can tell
// "absent" from "zero" when resolving defaults.
type ServiceProps struct {
	Name               string `yaml:"name"`
	BaseURL            string `yaml:"base_url"`
	HealthCheckPath    string `yaml:"health_check_path,omitempty"`
	Timeout            string `yaml:"timeout,omitempty"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute,omitempty"`
	Active             *bool  `yaml:"active,omitempty"`
}
