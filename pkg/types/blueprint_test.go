package types

import (
	"errors"
	"testing"
	"time"
)

func TestBlueprintValidate(t *testing.T) {
	valid := DefaultBlueprint()

	tests := []struct {
		name    string
		mutate  func(b *Blueprint)
		wantErr error
	}{
		{
			name:    "default blueprint is valid",
			mutate:  func(b *Blueprint) {},
			wantErr: nil,
		},
		{
			name:    "empty name returns ErrNameEmpty",
			mutate:  func(b *Blueprint) { b.Name = "  " },
			wantErr: ErrNameEmpty,
		},
		{
			name:    "unknown method returns ErrMethodUnknown",
			mutate:  func(b *Blueprint) { b.Method = "FETCH" },
			wantErr: ErrMethodUnknown,
		},
		{
			name:    "lower case method is accepted",
			mutate:  func(b *Blueprint) { b.Method = "post" },
			wantErr: nil,
		},
		{
			name:    "stage with slash returns ErrStageInvalid",
			mutate:  func(b *Blueprint) { b.Stage = "prod/v1" },
			wantErr: ErrStageInvalid,
		},
		{
			name:    "empty stage returns ErrStageInvalid",
			mutate:  func(b *Blueprint) { b.Stage = "" },
			wantErr: ErrStageInvalid,
		},
		{
			name:    "unknown endpoint type returns ErrEndpointTypeUnknown",
			mutate:  func(b *Blueprint) { b.EndpointType = "GLOBAL" },
			wantErr: ErrEndpointTypeUnknown,
		},
		{
			name:    "negative delay returns ErrDelayNegative",
			mutate:  func(b *Blueprint) { b.DeployDelay = -time.Second },
			wantErr: ErrDelayNegative,
		},
		{
			name:    "zero delay is valid",
			mutate:  func(b *Blueprint) { b.DeployDelay = 0 },
			wantErr: nil,
		},
		{
			name:    "slash-only path returns ErrPathEmpty",
			mutate:  func(b *Blueprint) { b.Resources = []ResourceSpec{{Path: "/"}} },
			wantErr: ErrPathEmpty,
		},
		{
			name:    "double slash returns ErrPathSegmentEmpty",
			mutate:  func(b *Blueprint) { b.Resources = []ResourceSpec{{Path: "rooms//1"}} },
			wantErr: ErrPathSegmentEmpty,
		},
		{
			name: "same path with different slashes returns ErrPathDuplicate",
			mutate: func(b *Blueprint) {
				b.Resources = []ResourceSpec{{Path: "rooms"}, {Path: "/rooms/"}}
			},
			wantErr: ErrPathDuplicate,
		},
		{
			name:    "unknown resource method returns ErrMethodUnknown",
			mutate:  func(b *Blueprint) { b.Resources = []ResourceSpec{{Path: "rooms", Method: "LIST"}} },
			wantErr: ErrMethodUnknown,
		},
		{
			name: "nested paths sharing a prefix are valid",
			mutate: func(b *Blueprint) {
				b.Resources = []ResourceSpec{{Path: "rooms"}, {Path: "rooms/{roomId}"}}
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid
			b.Resources = append([]ResourceSpec(nil), valid.Resources...)
			tt.mutate(&b)

			err := b.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResourceSpecSegments(t *testing.T) {
	tests := []struct {
		path     string
		segments []string
		full     string
	}{
		{path: "test", segments: []string{"test"}, full: "/test"},
		{path: "/rooms/{roomId}/", segments: []string{"rooms", "{roomId}"}, full: "/rooms/{roomId}"},
		{path: "/", segments: nil, full: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r := ResourceSpec{Path: tt.path}
			got := r.Segments()
			if len(got) != len(tt.segments) {
				t.Fatalf("Segments() = %v, want %v", got, tt.segments)
			}
			for i := range got {
				if got[i] != tt.segments[i] {
					t.Fatalf("Segments() = %v, want %v", got, tt.segments)
				}
			}
			if r.FullPath() != tt.full {
				t.Errorf("FullPath() = %q, want %q", r.FullPath(), tt.full)
			}
		})
	}
}

func TestBlueprintEffectiveMethod(t *testing.T) {
	b := Blueprint{Method: "get"}

	if got := b.EffectiveMethod(ResourceSpec{Path: "a"}); got != MethodGet {
		t.Errorf("expected inherited GET, got %q", got)
	}
	if got := b.EffectiveMethod(ResourceSpec{Path: "a", Method: "post"}); got != MethodPost {
		t.Errorf("expected resource POST, got %q", got)
	}
}

func TestRecordDeleted(t *testing.T) {
	r := NewRecord(Deployment{APIID: "abc", APIName: "n", Stage: "prod"}, "us-east-1", "")
	if r.Deleted() {
		t.Fatal("new record should not be deleted")
	}
	now := time.Now()
	r.DeletedAt = &now
	if !r.Deleted() {
		t.Fatal("record with DeletedAt should be deleted")
	}
}
