// Package gateway provisions API Gateway REST APIs whose resources answer
// through MOCK integrations.
//
// A Provisioner exposes one method per API Gateway step (create the API,
// add a resource, put a method, wire the mock integration, deploy) and
// Setup, which runs those steps for a whole types.Blueprint.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	gwtypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/aws/smithy-go"

	"github.com/mesh-intelligence/innkeeper/pkg/types"
)

// API is the subset of *apigateway.Client the provisioner calls.
type API interface {
	CreateRestApi(ctx context.Context, params *apigateway.CreateRestApiInput, optFns ...func(*apigateway.Options)) (*apigateway.CreateRestApiOutput, error)
	GetRestApis(ctx context.Context, params *apigateway.GetRestApisInput, optFns ...func(*apigateway.Options)) (*apigateway.GetRestApisOutput, error)
	DeleteRestApi(ctx context.Context, params *apigateway.DeleteRestApiInput, optFns ...func(*apigateway.Options)) (*apigateway.DeleteRestApiOutput, error)
	GetResources(ctx context.Context, params *apigateway.GetResourcesInput, optFns ...func(*apigateway.Options)) (*apigateway.GetResourcesOutput, error)
	CreateResource(ctx context.Context, params *apigateway.CreateResourceInput, optFns ...func(*apigateway.Options)) (*apigateway.CreateResourceOutput, error)
	PutMethod(ctx context.Context, params *apigateway.PutMethodInput, optFns ...func(*apigateway.Options)) (*apigateway.PutMethodOutput, error)
	PutMethodResponse(ctx context.Context, params *apigateway.PutMethodResponseInput, optFns ...func(*apigateway.Options)) (*apigateway.PutMethodResponseOutput, error)
	PutIntegration(ctx context.Context, params *apigateway.PutIntegrationInput, optFns ...func(*apigateway.Options)) (*apigateway.PutIntegrationOutput, error)
	PutIntegrationResponse(ctx context.Context, params *apigateway.PutIntegrationResponseInput, optFns ...func(*apigateway.Options)) (*apigateway.PutIntegrationResponseOutput, error)
	CreateDeployment(ctx context.Context, params *apigateway.CreateDeploymentInput, optFns ...func(*apigateway.Options)) (*apigateway.CreateDeploymentOutput, error)
}

// Step names reported in StepError.
const (
	StepCreateRestAPI          = "create rest api"
	StepGetRestAPIs            = "get rest apis"
	StepDeleteRestAPI          = "delete rest api"
	StepGetResources           = "get resources"
	StepCreateResource         = "create resource"
	StepPutMethod              = "put method"
	StepPutMethodResponse      = "put method response"
	StepPutIntegration         = "put integration"
	StepPutIntegrationResponse = "put integration response"
	StepCreateDeployment       = "create deployment"
)

const (
	statusOK          = "200"
	contentTypeJSON   = "application/json"
	emptyModel        = "Empty"
	authorizationNone = "NONE"
	deploymentNote    = "Deployment with full mock setup"
	resourcesPageSize = 500
	restAPIsPageSize  = 500
)

// Provisioner errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrRootNotFound = errors.New("root resource not found")
	ErrEmptyID      = errors.New("api gateway returned an empty id")
)

// StepError records which provisioning step failed. Code carries the AWS
// error code when the failure came from the service.
type StepError struct {
	Step string
	Code string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func stepError(step string, err error) error {
	se := &StepError{Step: step, Err: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		se.Code = apiErr.ErrorCode()
	}
	var nf *gwtypes.NotFoundException
	if errors.As(err, &nf) {
		se.Err = fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return se
}

// Provisioner drives API Gateway through an API client.
type Provisioner struct {
	api    API
	logger *slog.Logger
	wait   func(ctx context.Context, d time.Duration) error
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithLogger sets the logger step progress is reported to.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provisioner) { p.logger = l }
}

// New returns a Provisioner using api.
func New(api API, opts ...Option) *Provisioner {
	p := &Provisioner{
		api:    api,
		logger: slog.Default(),
		wait:   sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CreateRestAPI creates a REST API and returns its id.
func (p *Provisioner) CreateRestAPI(ctx context.Context, name, description, endpointType string) (string, error) {
	out, err := p.api.CreateRestApi(ctx, &apigateway.CreateRestApiInput{
		Name:        aws.String(name),
		Description: aws.String(description),
		EndpointConfiguration: &gwtypes.EndpointConfiguration{
			Types: []gwtypes.EndpointType{gwtypes.EndpointType(strings.ToUpper(endpointType))},
		},
	})
	if err != nil {
		return "", stepError(StepCreateRestAPI, err)
	}
	id := aws.ToString(out.Id)
	if id == "" {
		return "", stepError(StepCreateRestAPI, ErrEmptyID)
	}
	p.logger.Info("created rest api", "name", name, "api_id", id)
	return id, nil
}

// ListAPIs returns every REST API visible to the caller.
func (p *Provisioner) ListAPIs(ctx context.Context) ([]types.RestAPI, error) {
	var (
		apis []types.RestAPI
		pos  *string
	)
	for {
		out, err := p.api.GetRestApis(ctx, &apigateway.GetRestApisInput{
			Limit:    aws.Int32(restAPIsPageSize),
			Position: pos,
		})
		if err != nil {
			return nil, stepError(StepGetRestAPIs, err)
		}
		for _, item := range out.Items {
			apis = append(apis, types.RestAPI{
				ID:          aws.ToString(item.Id),
				Name:        aws.ToString(item.Name),
				Description: aws.ToString(item.Description),
				CreatedAt:   item.CreatedDate,
			})
		}
		if !nextPage(pos, out.Position) {
			break
		}
		pos = out.Position
	}
	return apis, nil
}

// DeleteAPI deletes a REST API. An unknown id yields an error wrapping
// ErrNotFound.
func (p *Provisioner) DeleteAPI(ctx context.Context, apiID string) error {
	if _, err := p.api.DeleteRestApi(ctx, &apigateway.DeleteRestApiInput{
		RestApiId: aws.String(apiID),
	}); err != nil {
		return stepError(StepDeleteRestAPI, err)
	}
	p.logger.Info("deleted rest api", "api_id", apiID)
	return nil
}

// Resources returns every resource of the API sorted by path.
func (p *Provisioner) Resources(ctx context.Context, apiID string) ([]types.Resource, error) {
	var (
		resources []types.Resource
		pos       *string
	)
	for {
		out, err := p.api.GetResources(ctx, &apigateway.GetResourcesInput{
			RestApiId: aws.String(apiID),
			Limit:     aws.Int32(resourcesPageSize),
			Position:  pos,
		})
		if err != nil {
			return nil, stepError(StepGetResources, err)
		}
		for _, item := range out.Items {
			resources = append(resources, types.Resource{
				ID:       aws.ToString(item.Id),
				ParentID: aws.ToString(item.ParentId),
				Path:     aws.ToString(item.Path),
				PathPart: aws.ToString(item.PathPart),
			})
		}
		if !nextPage(pos, out.Position) {
			break
		}
		pos = out.Position
	}

	sort.Slice(resources, func(i, j int) bool { return resources[i].Path < resources[j].Path })
	return resources, nil
}

// nextPage reports whether next names a page not yet fetched.
func nextPage(cur, next *string) bool {
	if aws.ToString(next) == "" {
		return false
	}
	return aws.ToString(cur) != aws.ToString(next)
}

// RootResourceID returns the id of the "/" resource API Gateway creates
// with every REST API.
func (p *Provisioner) RootResourceID(ctx context.Context, apiID string) (string, error) {
	resources, err := p.Resources(ctx, apiID)
	if err != nil {
		return "", err
	}
	for _, r := range resources {
		if r.Path == types.RootPath {
			p.logger.Debug("found root resource", "api_id", apiID, "resource_id", r.ID)
			return r.ID, nil
		}
	}
	return "", stepError(StepGetResources, fmt.Errorf("api %s: %w", apiID, ErrRootNotFound))
}

// CreateChildResource creates pathPart below parentID and returns the new
// resource id.
func (p *Provisioner) CreateChildResource(ctx context.Context, apiID, parentID, pathPart string) (string, error) {
	out, err := p.api.CreateResource(ctx, &apigateway.CreateResourceInput{
		RestApiId: aws.String(apiID),
		ParentId:  aws.String(parentID),
		PathPart:  aws.String(pathPart),
	})
	if err != nil {
		return "", stepError(StepCreateResource, fmt.Errorf("%s: %w", pathPart, err))
	}
	id := aws.ToString(out.Id)
	if id == "" {
		return "", stepError(StepCreateResource, ErrEmptyID)
	}
	p.logger.Info("created resource", "api_id", apiID, "path_part", pathPart, "resource_id", id)
	return id, nil
}

// CreateMethod puts an unauthenticated method on a resource.
func (p *Provisioner) CreateMethod(ctx context.Context, apiID, resourceID, method string) error {
	_, err := p.api.PutMethod(ctx, &apigateway.PutMethodInput{
		RestApiId:         aws.String(apiID),
		ResourceId:        aws.String(resourceID),
		HttpMethod:        aws.String(method),
		AuthorizationType: aws.String(authorizationNone),
	})
	if err != nil {
		return stepError(StepPutMethod, err)
	}
	p.logger.Info("created method", "api_id", apiID, "resource_id", resourceID, "method", method)
	return nil
}

// CreateMethodResponse declares the 200 response of a method.
func (p *Provisioner) CreateMethodResponse(ctx context.Context, apiID, resourceID, method string) error {
	_, err := p.api.PutMethodResponse(ctx, &apigateway.PutMethodResponseInput{
		RestApiId:      aws.String(apiID),
		ResourceId:     aws.String(resourceID),
		HttpMethod:     aws.String(method),
		StatusCode:     aws.String(statusOK),
		ResponseModels: map[string]string{contentTypeJSON: emptyModel},
	})
	if err != nil {
		return stepError(StepPutMethodResponse, err)
	}
	p.logger.Info("created method response", "api_id", apiID, "resource_id", resourceID, "method", method, "status", statusOK)
	return nil
}

// mockRequest is the integration request template that makes the MOCK
// integration answer with a status code.
type mockRequest struct {
	StatusCode int `json:"statusCode"`
}

// mockResponse is the integration response template mapped to the body
// clients receive.
type mockResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// RequestTemplate returns the MOCK integration request template.
func RequestTemplate() string {
	b, _ := json.Marshal(mockRequest{StatusCode: 200})
	return string(b)
}

// ResponseTemplate returns the integration response template that answers
// with body.
func ResponseTemplate(body string) (string, error) {
	b, err := json.Marshal(mockResponse{StatusCode: 200, Body: body})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SetMockIntegration attaches a MOCK integration to a method.
func (p *Provisioner) SetMockIntegration(ctx context.Context, apiID, resourceID, method string) error {
	_, err := p.api.PutIntegration(ctx, &apigateway.PutIntegrationInput{
		RestApiId:        aws.String(apiID),
		ResourceId:       aws.String(resourceID),
		HttpMethod:       aws.String(method),
		Type:             gwtypes.IntegrationTypeMock,
		RequestTemplates: map[string]string{contentTypeJSON: RequestTemplate()},
	})
	if err != nil {
		return stepError(StepPutIntegration, err)
	}
	p.logger.Info("set mock integration", "api_id", apiID, "resource_id", resourceID, "method", method)
	return nil
}

// SetMockIntegrationResponse maps the mock status to a response carrying body.
func (p *Provisioner) SetMockIntegrationResponse(ctx context.Context, apiID, resourceID, method, body string) error {
	tmpl, err := ResponseTemplate(body)
	if err != nil {
		return stepError(StepPutIntegrationResponse, err)
	}
	_, err = p.api.PutIntegrationResponse(ctx, &apigateway.PutIntegrationResponseInput{
		RestApiId:         aws.String(apiID),
		ResourceId:        aws.String(resourceID),
		HttpMethod:        aws.String(method),
		StatusCode:        aws.String(statusOK),
		ResponseTemplates: map[string]string{contentTypeJSON: tmpl},
	})
	if err != nil {
		return stepError(StepPutIntegrationResponse, err)
	}
	p.logger.Info("set mock integration response", "api_id", apiID, "resource_id", resourceID, "method", method)
	return nil
}

// CreateDeployment waits delay for the configuration to propagate, then
// deploys the API to stage and returns the deployment id. Cancelling ctx
// during the wait aborts without deploying.
func (p *Provisioner) CreateDeployment(ctx context.Context, apiID, stage string, delay time.Duration) (string, error) {
	if delay > 0 {
		p.logger.Info("waiting for configuration to propagate", "api_id", apiID, "delay", delay)
	}
	if err := p.wait(ctx, delay); err != nil {
		return "", stepError(StepCreateDeployment, err)
	}

	out, err := p.api.CreateDeployment(ctx, &apigateway.CreateDeploymentInput{
		RestApiId:   aws.String(apiID),
		StageName:   aws.String(stage),
		Description: aws.String(deploymentNote),
	})
	if err != nil {
		return "", stepError(StepCreateDeployment, err)
	}
	id := aws.ToString(out.Id)
	if id == "" {
		return "", stepError(StepCreateDeployment, ErrEmptyID)
	}
	p.logger.Info("deployed api", "api_id", apiID, "stage", stage, "deployment_id", id)
	return id, nil
}

// wireMock puts method, method response, MOCK integration and integration
// response on one resource.
func (p *Provisioner) wireMock(ctx context.Context, apiID, resourceID, method, body string) error {
	if err := p.CreateMethod(ctx, apiID, resourceID, method); err != nil {
		return err
	}
	if err := p.CreateMethodResponse(ctx, apiID, resourceID, method); err != nil {
		return err
	}
	if err := p.SetMockIntegration(ctx, apiID, resourceID, method); err != nil {
		return err
	}
	return p.SetMockIntegrationResponse(ctx, apiID, resourceID, method, body)
}

// Setup provisions bp against target: it creates the API, wires the root
// and every resource to a MOCK integration, deploys, and computes the
// invoke URLs.
//
// Setup stops at the first failing step. The returned Deployment then
// carries whatever was created, so a caller can still record or tear down
// the partial API.
func (p *Provisioner) Setup(ctx context.Context, bp types.Blueprint, target Target) (types.Deployment, error) {
	d := types.Deployment{APIName: bp.Name, Stage: bp.Stage}
	if err := bp.Validate(); err != nil {
		return d, fmt.Errorf("invalid blueprint: %w", err)
	}

	apiID, err := p.CreateRestAPI(ctx, bp.Name, bp.Description, bp.EndpointType)
	if err != nil {
		return d, err
	}
	d.APIID = apiID

	rootID, err := p.RootResourceID(ctx, apiID)
	if err != nil {
		return d, err
	}
	if err := p.wireMock(ctx, apiID, rootID, bp.EffectiveMethod(types.ResourceSpec{}), bp.RootBody); err != nil {
		return d, err
	}

	// known maps absolute paths to resource ids so shared prefixes are
	// created once.
	known := map[string]string{types.RootPath: rootID}
	for _, spec := range bp.Resources {
		parentID := rootID
		path := ""
		for _, seg := range spec.Segments() {
			path += "/" + seg
			id, ok := known[path]
			if !ok {
				id, err = p.CreateChildResource(ctx, apiID, parentID, seg)
				if err != nil {
					return d, err
				}
				known[path] = id
			}
			parentID = id
		}
		if err := p.wireMock(ctx, apiID, parentID, bp.EffectiveMethod(spec), spec.Body); err != nil {
			return d, fmt.Errorf("resource %s: %w", spec.FullPath(), err)
		}
	}

	resources, err := p.Resources(ctx, apiID)
	if err != nil {
		return d, err
	}
	d.Resources = resources

	deploymentID, err := p.CreateDeployment(ctx, apiID, bp.Stage, bp.DeployDelay)
	if err != nil {
		return d, err
	}
	d.DeploymentID = deploymentID
	d.InvokeURL, d.AltInvokeURL = InvokeURLs(apiID, bp.Stage, target)
	return d, nil
}
