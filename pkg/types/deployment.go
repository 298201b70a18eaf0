package types

import (
	"errors"
	"time"
)

// RootPath is the path API Gateway gives the resource created with every
// REST API.
const RootPath = "/"

// Resource is an API Gateway resource as reported by GetResources.
type Resource struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Path     string `json:"path"`
	PathPart string `json:"path_part,omitempty"`
}

// Deployment is the outcome of provisioning a blueprint. When provisioning
// fails part way, the fields reached so far are populated.
type Deployment struct {
	APIID        string     `json:"api_id"`
	APIName      string     `json:"api_name"`
	Stage        string     `json:"stage"`
	DeploymentID string     `json:"deployment_id,omitempty"`
	InvokeURL    string     `json:"invoke_url,omitempty"`
	AltInvokeURL string     `json:"alt_invoke_url,omitempty"`
	Resources    []Resource `json:"resources,omitempty"`
}

// Record is a ledger entry for one provisioning run.
type Record struct {
	ID           string     `json:"id"`
	APIID        string     `json:"api_id"`
	APIName      string     `json:"api_name"`
	Stage        string     `json:"stage"`
	DeploymentID string     `json:"deployment_id,omitempty"`
	InvokeURL    string     `json:"invoke_url,omitempty"`
	Region       string     `json:"region"`
	Endpoint     string     `json:"endpoint,omitempty"`
	Resources    []Resource `json:"resources,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// ErrRecordIncomplete is returned when a record lacks the API it describes.
var ErrRecordIncomplete = errors.New("record must name an api id")

// NewRecord builds a ledger record from a deployment and the target it
// was provisioned against.
func NewRecord(d Deployment, region, endpoint string) Record {
	return Record{
		APIID:        d.APIID,
		APIName:      d.APIName,
		Stage:        d.Stage,
		DeploymentID: d.DeploymentID,
		InvokeURL:    d.InvokeURL,
		Region:       region,
		Endpoint:     endpoint,
		Resources:    d.Resources,
	}
}

// Deleted reports whether the API behind the record has been torn down.
func (r Record) Deleted() bool {
	return r.DeletedAt != nil
}

// RestAPI summarises a REST API reported by GetRestApis.
type RestAPI struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}
