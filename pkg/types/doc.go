// Package types defines the blueprint that describes a mock REST API, the
// records produced when a blueprint is provisioned, and the standard errors
// shared by the innkeeper packages.
package types
