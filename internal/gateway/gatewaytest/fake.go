// Package gatewaytest provides an in-memory API Gateway for tests of code
// that drives a gateway.Provisioner.
package gatewaytest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	gwtypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"
)

// Fake is an in-memory API Gateway good enough to drive a Provisioner. It
// satisfies gateway.API.
type Fake struct {
	mu       sync.Mutex
	nextID   int
	PageSize int
	apis     map[string]*RestAPI
	order    []string
	calls    []string
	// FailOn makes the named operation return the error. Operation names
	// match the SDK method names.
	FailOn map[string]error
}

// RestAPI is the state kept for one created API. Method-level maps are
// keyed by MethodKey.
type RestAPI struct {
	ID                   string
	Name                 string
	Description          string
	EndpointTypes        []gwtypes.EndpointType
	Resources            []gwtypes.Resource
	Methods              map[string]string // authorization type
	MethodResponses      map[string]map[string]string
	Integrations         map[string]*apigateway.PutIntegrationInput
	IntegrationResponses map[string]string // application/json template
	Deployments          []*apigateway.CreateDeploymentInput
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		PageSize: 100,
		apis:     make(map[string]*RestAPI),
		FailOn:   make(map[string]error),
	}
}

// MethodKey identifies a method on a resource in the RestAPI maps.
func MethodKey(resourceID, method string) string {
	return resourceID + " " + method
}

func (f *Fake) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%04d", prefix, f.nextID)
}

func (f *Fake) record(op string) error {
	f.calls = append(f.calls, op)
	return f.FailOn[op]
}

func notFound(id string) error {
	return &gwtypes.NotFoundException{Message: aws.String("Invalid API identifier specified " + id)}
}

func (f *Fake) lookup(id *string) (*RestAPI, error) {
	api, ok := f.apis[aws.ToString(id)]
	if !ok {
		return nil, notFound(aws.ToString(id))
	}
	return api, nil
}

// Count returns how many times the SDK operation op was called.
func (f *Fake) Count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

// Calls returns the SDK operations invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// API returns the state of a created API, or nil.
func (f *Fake) API(id string) *RestAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apis[id]
}

// Only returns the single API created, or nil when there is not exactly one.
func (f *Fake) Only() *RestAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.order) != 1 {
		return nil
	}
	return f.apis[f.order[0]]
}

// ResourceByPath finds a resource of api by its full path.
func (f *Fake) ResourceByPath(api *RestAPI, path string) (gwtypes.Resource, bool) {
	for _, r := range api.Resources {
		if aws.ToString(r.Path) == path {
			return r, true
		}
	}
	return gwtypes.Resource{}, false
}

func (f *Fake) CreateRestApi(_ context.Context, in *apigateway.CreateRestApiInput, _ ...func(*apigateway.Options)) (*apigateway.CreateRestApiOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateRestApi"); err != nil {
		return nil, err
	}
	api := &RestAPI{
		ID:                   f.id("api"),
		Name:                 aws.ToString(in.Name),
		Description:          aws.ToString(in.Description),
		Methods:              make(map[string]string),
		MethodResponses:      make(map[string]map[string]string),
		Integrations:         make(map[string]*apigateway.PutIntegrationInput),
		IntegrationResponses: make(map[string]string),
	}
	if in.EndpointConfiguration != nil {
		api.EndpointTypes = in.EndpointConfiguration.Types
	}
	api.Resources = append(api.Resources, gwtypes.Resource{
		Id:   aws.String(f.id("root")),
		Path: aws.String("/"),
	})
	f.apis[api.ID] = api
	f.order = append(f.order, api.ID)
	return &apigateway.CreateRestApiOutput{Id: aws.String(api.ID), Name: in.Name}, nil
}

func (f *Fake) GetRestApis(_ context.Context, in *apigateway.GetRestApisInput, _ ...func(*apigateway.Options)) (*apigateway.GetRestApisOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetRestApis"); err != nil {
		return nil, err
	}
	start, _ := strconv.Atoi(aws.ToString(in.Position))
	out := &apigateway.GetRestApisOutput{}
	end := min(start+f.PageSize, len(f.order))
	for _, id := range f.order[start:end] {
		api := f.apis[id]
		out.Items = append(out.Items, gwtypes.RestApi{
			Id:          aws.String(api.ID),
			Name:        aws.String(api.Name),
			Description: aws.String(api.Description),
		})
	}
	if end < len(f.order) {
		out.Position = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *Fake) DeleteRestApi(_ context.Context, in *apigateway.DeleteRestApiInput, _ ...func(*apigateway.Options)) (*apigateway.DeleteRestApiOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteRestApi"); err != nil {
		return nil, err
	}
	if _, err := f.lookup(in.RestApiId); err != nil {
		return nil, err
	}
	id := aws.ToString(in.RestApiId)
	delete(f.apis, id)
	for i, o := range f.order {
		if o == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return &apigateway.DeleteRestApiOutput{}, nil
}

func (f *Fake) GetResources(_ context.Context, in *apigateway.GetResourcesInput, _ ...func(*apigateway.Options)) (*apigateway.GetResourcesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetResources"); err != nil {
		return nil, err
	}
	api, err := f.lookup(in.RestApiId)
	if err != nil {
		return nil, err
	}
	start, _ := strconv.Atoi(aws.ToString(in.Position))
	end := min(start+f.PageSize, len(api.Resources))
	out := &apigateway.GetResourcesOutput{
		Items: append([]gwtypes.Resource(nil), api.Resources[start:end]...),
	}
	if end < len(api.Resources) {
		out.Position = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *Fake) CreateResource(_ context.Context, in *apigateway.CreateResourceInput, _ ...func(*apigateway.Options)) (*apigateway.CreateResourceOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateResource"); err != nil {
		return nil, err
	}
	api, err := f.lookup(in.RestApiId)
	if err != nil {
		return nil, err
	}
	var parentPath string
	for _, r := range api.Resources {
		if aws.ToString(r.Id) == aws.ToString(in.ParentId) {
			parentPath = aws.ToString(r.Path)
		}
	}
	if parentPath == "" {
		return nil, &gwtypes.NotFoundException{Message: aws.String("Invalid Resource identifier specified")}
	}
	path := parentPath + aws.ToString(in.PathPart)
	if parentPath != "/" {
		path = parentPath + "/" + aws.ToString(in.PathPart)
	}
	if _, exists := f.ResourceByPath(api, path); exists {
		return nil, &gwtypes.ConflictException{Message: aws.String("Another resource with the same parent already has this name")}
	}
	r := gwtypes.Resource{
		Id:       aws.String(f.id("res")),
		ParentId: in.ParentId,
		PathPart: in.PathPart,
		Path:     aws.String(path),
	}
	api.Resources = append(api.Resources, r)
	return &apigateway.CreateResourceOutput{Id: r.Id, ParentId: r.ParentId, Path: r.Path, PathPart: r.PathPart}, nil
}

func (f *Fake) PutMethod(_ context.Context, in *apigateway.PutMethodInput, _ ...func(*apigateway.Options)) (*apigateway.PutMethodOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PutMethod"); err != nil {
		return nil, err
	}
	api, err := f.lookup(in.RestApiId)
	if err != nil {
		return nil, err
	}
	api.Methods[MethodKey(aws.ToString(in.ResourceId), aws.ToString(in.HttpMethod))] = aws.ToString(in.AuthorizationType)
	return &apigateway.PutMethodOutput{HttpMethod: in.HttpMethod}, nil
}

func (f *Fake) PutMethodResponse(_ context.Context, in *apigateway.PutMethodResponseInput, _ ...func(*apigateway.Options)) (*apigateway.PutMethodResponseOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PutMethodResponse"); err != nil {
		return nil, err
	}
	api, err := f.lookup(in.RestApiId)
	if err != nil {
		return nil, err
	}
	api.MethodResponses[MethodKey(aws.ToString(in.ResourceId), aws.ToString(in.HttpMethod))] = in.ResponseModels
	return &apigateway.PutMethodResponseOutput{StatusCode: in.StatusCode}, nil
}

func (f *Fake) PutIntegration(_ context.Context, in *apigateway.PutIntegrationInput, _ ...func(*apigateway.Options)) (*apigateway.PutIntegrationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PutIntegration"); err != nil {
		return nil, err
	}
	api, err := f.lookup(in.RestApiId)
	if err != nil {
		return nil, err
	}
	api.Integrations[MethodKey(aws.ToString(in.ResourceId), aws.ToString(in.HttpMethod))] = in
	return &apigateway.PutIntegrationOutput{Type: in.Type}, nil
}

func (f *Fake) PutIntegrationResponse(_ context.Context, in *apigateway.PutIntegrationResponseInput, _ ...func(*apigateway.Options)) (*apigateway.PutIntegrationResponseOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PutIntegrationResponse"); err != nil {
		return nil, err
	}
	api, err := f.lookup(in.RestApiId)
	if err != nil {
		return nil, err
	}
	api.IntegrationResponses[MethodKey(aws.ToString(in.ResourceId), aws.ToString(in.HttpMethod))] = in.ResponseTemplates["application/json"]
	return &apigateway.PutIntegrationResponseOutput{StatusCode: in.StatusCode}, nil
}

func (f *Fake) CreateDeployment(_ context.Context, in *apigateway.CreateDeploymentInput, _ ...func(*apigateway.Options)) (*apigateway.CreateDeploymentOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateDeployment"); err != nil {
		return nil, err
	}
	api, err := f.lookup(in.RestApiId)
	if err != nil {
		return nil, err
	}
	api.Deployments = append(api.Deployments, in)
	return &apigateway.CreateDeploymentOutput{Id: aws.String(f.id("dep"))}, nil
}
