package types

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// HTTP methods accepted by API Gateway PutMethod.
const (
	MethodGet     = "GET"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodHead    = "HEAD"
	MethodOptions = "OPTIONS"
	MethodAny     = "ANY"
)

// Endpoint types for a REST API. REGIONAL is the only one LocalStack serves
// reliably.
const (
	EndpointRegional = "REGIONAL"
	EndpointEdge     = "EDGE"
	EndpointPrivate  = "PRIVATE"
)

// Blueprint defaults.
const (
	DefaultAPIName     = "hotel-booking-api"
	DefaultDescription = "Mock front door for the hotel booking platform"
	DefaultStage       = "prod"
	DefaultDeployDelay = 10 * time.Second
	DefaultRootBody    = "Hello from root!"
)

// Blueprint validation errors.
var (
	ErrNameEmpty           = errors.New("api name must not be empty")
	ErrMethodUnknown       = errors.New("unknown http method")
	ErrStageInvalid        = errors.New("stage name may contain only letters, digits, '-' and '_'")
	ErrEndpointTypeUnknown = errors.New("unknown endpoint type")
	ErrDelayNegative       = errors.New("deploy delay must not be negative")
	ErrPathEmpty           = errors.New("resource path must not be empty")
	ErrPathSegmentEmpty    = errors.New("resource path contains an empty segment")
	ErrPathDuplicate       = errors.New("duplicate resource path")
)

var knownMethods = map[string]bool{
	MethodGet:     true,
	MethodPost:    true,
	MethodPut:     true,
	MethodPatch:   true,
	MethodDelete:  true,
	MethodHead:    true,
	MethodOptions: true,
	MethodAny:     true,
}

var knownEndpointTypes = map[string]bool{
	EndpointRegional: true,
	EndpointEdge:     true,
	EndpointPrivate:  true,
}

var stagePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Blueprint describes a REST API whose every resource answers through a
// MOCK integration with a fixed body. The root resource always exists; each
// entry in Resources hangs below it.
type Blueprint struct {
	Name         string         `json:"name" yaml:"name" mapstructure:"name"`
	Description  string         `json:"description" yaml:"description" mapstructure:"description"`
	Method       string         `json:"method" yaml:"method" mapstructure:"method"`
	Stage        string         `json:"stage" yaml:"stage" mapstructure:"stage"`
	EndpointType string         `json:"endpoint_type" yaml:"endpoint_type" mapstructure:"endpoint_type"`
	DeployDelay  time.Duration  `json:"deploy_delay" yaml:"deploy_delay" mapstructure:"deploy_delay"`
	RootBody     string         `json:"root_body" yaml:"root_body" mapstructure:"root_body"`
	Resources    []ResourceSpec `json:"resources" yaml:"resources" mapstructure:"resources"`
}

// ResourceSpec is one path below the root. Path is relative to "/" and may
// span several segments, e.g. "rooms/{roomId}". Intermediate segments are
// created without a method; only the leaf answers.
type ResourceSpec struct {
	Path   string `json:"path" yaml:"path" mapstructure:"path"`
	Method string `json:"method,omitempty" yaml:"method,omitempty" mapstructure:"method"`
	Body   string `json:"body" yaml:"body" mapstructure:"body"`
}

// DefaultBlueprint returns the blueprint used when no configuration
// overrides it: a GET on "/" and on "/test".
func DefaultBlueprint() Blueprint {
	return Blueprint{
		Name:         DefaultAPIName,
		Description:  DefaultDescription,
		Method:       MethodGet,
		Stage:        DefaultStage,
		EndpointType: EndpointRegional,
		DeployDelay:  DefaultDeployDelay,
		RootBody:     DefaultRootBody,
		Resources: []ResourceSpec{
			{Path: "test", Body: "Hello from /test!"},
		},
	}
}

// Segments splits the path into its path parts. Leading and trailing
// slashes are ignored.
func (r ResourceSpec) Segments() []string {
	trimmed := strings.Trim(r.Path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// FullPath returns the absolute resource path, e.g. "/rooms/{roomId}".
func (r ResourceSpec) FullPath() string {
	return "/" + strings.Join(r.Segments(), "/")
}

// EffectiveMethod returns the method the resource answers on: its own when
// set, otherwise the blueprint's.
func (b Blueprint) EffectiveMethod(r ResourceSpec) string {
	if r.Method != "" {
		return strings.ToUpper(r.Method)
	}
	return strings.ToUpper(b.Method)
}

// Validate checks that the blueprint can be provisioned. It returns a
// sentinel error from this package, wrapped with context where a resource
// is at fault.
func (b Blueprint) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrNameEmpty
	}
	if !knownMethods[strings.ToUpper(b.Method)] {
		return fmt.Errorf("%w: %q", ErrMethodUnknown, b.Method)
	}
	if !stagePattern.MatchString(b.Stage) {
		return fmt.Errorf("%w: %q", ErrStageInvalid, b.Stage)
	}
	if !knownEndpointTypes[strings.ToUpper(b.EndpointType)] {
		return fmt.Errorf("%w: %q", ErrEndpointTypeUnknown, b.EndpointType)
	}
	if b.DeployDelay < 0 {
		return ErrDelayNegative
	}

	seen := make(map[string]bool, len(b.Resources))
	for i, r := range b.Resources {
		if strings.Trim(r.Path, "/") == "" {
			return fmt.Errorf("resource %d: %w", i, ErrPathEmpty)
		}
		for _, seg := range r.Segments() {
			if strings.TrimSpace(seg) == "" {
				return fmt.Errorf("resource %q: %w", r.Path, ErrPathSegmentEmpty)
			}
		}
		if r.Method != "" && !knownMethods[strings.ToUpper(r.Method)] {
			return fmt.Errorf("resource %q: %w: %q", r.Path, ErrMethodUnknown, r.Method)
		}
		full := r.FullPath()
		if seen[full] {
			return fmt.Errorf("%w: %s", ErrPathDuplicate, full)
		}
		seen[full] = true
	}
	return nil
}
