package gateway

import (
	"fmt"
	"net/url"
)

// defaultLocalStackPort is the LocalStack edge port.
const defaultLocalStackPort = "4566"

// Target describes where an API is deployed. An empty Endpoint means real
// AWS; any endpoint override is treated as LocalStack.
type Target struct {
	Region   string
	Endpoint string
}

// LocalStack reports whether the target is a LocalStack emulator.
func (t Target) LocalStack() bool {
	return t.Endpoint != ""
}

func (t Target) port() string {
	u, err := url.Parse(t.Endpoint)
	if err != nil || u.Port() == "" {
		return defaultLocalStackPort
	}
	return u.Port()
}

// InvokeURLs returns the base URL clients call for a deployed stage and,
// on LocalStack, the path-style alternative that works without wildcard
// DNS. On AWS the alternative is empty.
func InvokeURLs(apiID, stage string, t Target) (primary, alternative string) {
	if !t.LocalStack() {
		return fmt.Sprintf("https://%s.execute-api.%s.amazonaws.com/%s", apiID, t.Region, stage), ""
	}
	port := t.port()
	primary = fmt.Sprintf("http://%s.execute-api.localhost.localstack.cloud:%s/%s", apiID, port, stage)
	alternative = fmt.Sprintf("http://localhost:%s/_aws/execute-api/%s/%s/", port, apiID, stage)
	return primary, alternative
}
