package handler

// Configuration file format. Matchers form a tree under must_match; page
// fields sit flattened next to it in each handler entry.
//
//	host: 127.0.0.1
//	port: 8387
//	handlers:
//	  - must_match: { type: path, path: abc }
//	    type: string
//	    data: abc
//	errors:
//	  not_found: { type: string, data: "404: not found." }

type MatcherSpec struct {
	Type    string        `yaml:"type" validate:"required,oneof=path regex any all not root"`
	Path    string        `yaml:"path"`
	Pattern string        `yaml:"pattern"`
	Of      []MatcherSpec `yaml:"of" validate:"dive"`
	Matcher *MatcherSpec  `yaml:"matcher"`
}

type PageSpec struct {
	Type        string `yaml:"type" validate:"required,oneof=redirect string file proxy"`
	To          string `yaml:"to"`
	Data        string `yaml:"data"`
	Path        string `yaml:"path"`
	ContentType string `yaml:"content_type"`
	Scheme      string `yaml:"scheme" validate:"omitempty,oneof=http https"`
	Upstream    string `yaml:"upstream"`
}

type HandlerSpec struct {
	MustMatch MatcherSpec `yaml:"must_match"`
	PageSpec  `yaml:",inline"`
}

type ErrorPagesSpec struct {
	NotFound *PageSpec `yaml:"not_found"`
	NoPath   *PageSpec `yaml:"no_path"`
}

type MetricsSpec struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port" validate:"omitempty,min=1,max=65535"`
}

type Configuration struct {
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port" validate:"min=1,max=65535"`
	Handlers []HandlerSpec  `yaml:"handlers" validate:"dive"`
	Errors   ErrorPagesSpec `yaml:"errors"`
	Metrics  MetricsSpec    `yaml:"metrics"`
}

const defaultContentType = "text/html"

// DefaultConfiguration carries the values a minimal config file inherits.
func DefaultConfiguration() Configuration {
	return Configuration{
		Host: "127.0.0.1",
		Port: 8387,
		Metrics: MetricsSpec{
			Enabled: false,
			Port:    9090,
		},
	}
}

func defaultNotFoundPage() *PageSpec {
	return &PageSpec{
		Type:        "string",
		Data:        "404: not found.",
		ContentType: defaultContentType,
	}
}

func defaultNoPathPage() *PageSpec {
	return &PageSpec{
		Type: "redirect",
		To:   "/_",
	}
}
