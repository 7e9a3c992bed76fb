package handler

import (
	"os"

	"github.com/pkg/errors"
	validator "gopkg.in/go-playground/validator.v9"
	"gopkg.in/yaml.v3"

	"github.com/gatepost/gatepost/pkg/matcher"
)

var validate = validator.New()

// LoadConfiguration reads and decodes the configuration file at path,
// applies defaults, and runs the structural validation pass. Semantic checks
// that need work (regex compilation, file reads) stay in Prepare.
func LoadConfiguration(path string) (Configuration, error) {
	config := DefaultConfiguration()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrap(err, "reading configuration")
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, errors.Wrap(err, "parsing configuration")
	}

	if err := validate.Struct(config); err != nil {
		return config, errors.Wrap(err, "invalid configuration")
	}

	return config, nil
}

// BuildTable turns a decoded configuration into a fully prepared routing
// table. It either returns a table that is valid in its entirety or an error
// locating the first problem; a partially valid table never escapes.
func BuildTable(config Configuration) (*Table, error) {
	table := &Table{
		Host:     config.Host,
		Port:     config.Port,
		Handlers: make([]RouteHandler, 0, len(config.Handlers)),
	}

	for i, spec := range config.Handlers {
		m, err := buildMatcher(spec.MustMatch)
		if err != nil {
			return nil, errors.Wrapf(err, "inside handler %d", i)
		}

		page, err := buildPage(spec.PageSpec)
		if err != nil {
			return nil, errors.Wrapf(err, "inside handler %d", i)
		}

		table.Handlers = append(table.Handlers, RouteHandler{Match: m, Page: page})
	}

	notFound := config.Errors.NotFound
	if notFound == nil {
		notFound = defaultNotFoundPage()
	}
	noPath := config.Errors.NoPath
	if noPath == nil {
		noPath = defaultNoPathPage()
	}

	var err error
	if table.NotFound, err = buildPage(*notFound); err != nil {
		return nil, errors.Wrap(err, "inside the not_found error page")
	}
	if table.NoPath, err = buildPage(*noPath); err != nil {
		return nil, errors.Wrap(err, "inside the no_path error page")
	}

	if err := table.Prepare(); err != nil {
		return nil, err
	}

	return table, nil
}

func buildMatcher(spec MatcherSpec) (matcher.Matcher, error) {
	switch spec.Type {
	case "path":
		return &matcher.Path{Value: spec.Path}, nil

	case "regex":
		return &matcher.Regex{Pattern: spec.Pattern}, nil

	case "any", "all":
		children := make([]matcher.Matcher, 0, len(spec.Of))
		for _, childSpec := range spec.Of {
			child, err := buildMatcher(childSpec)
			if err != nil {
				return nil, errors.Wrapf(err, "inside an %s block", spec.Type)
			}
			children = append(children, child)
		}
		if spec.Type == "any" {
			return &matcher.Any{Of: children}, nil
		}
		return &matcher.All{Of: children}, nil

	case "not":
		if spec.Matcher == nil {
			// Leave the empty child for Prepare to report.
			return &matcher.Not{}, nil
		}
		child, err := buildMatcher(*spec.Matcher)
		if err != nil {
			return nil, errors.Wrap(err, "inside a not block")
		}
		return &matcher.Not{Child: child}, nil

	case "root":
		return &matcher.Root{}, nil
	}

	return nil, errors.Errorf("unknown matcher type %q", spec.Type)
}

func buildPage(spec PageSpec) (Page, error) {
	contentType := spec.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	switch spec.Type {
	case "redirect":
		return &RedirectPage{To: spec.To}, nil

	case "string":
		return &EmbeddedPage{Data: []byte(spec.Data), ContentType: contentType}, nil

	case "file":
		return &StaticFilePage{Path: spec.Path, ContentType: contentType}, nil

	case "proxy":
		scheme := spec.Scheme
		if scheme == "" {
			scheme = "http"
		}
		return &ProxyPage{Scheme: scheme, Upstream: spec.Upstream}, nil
	}

	return nil, errors.Errorf("unknown page type %q", spec.Type)
}
