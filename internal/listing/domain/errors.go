package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrListingNotFound      = errors.New("listing not found")
	ErrImageNotFound        = errors.New("image not found in draft")
	ErrBlobNotFound         = errors.New("object not found in blob store")
	ErrUnsupportedMediaType = errors.New("only JPEG or PNG images are accepted")
	ErrNoImageAttached      = errors.New("listing needs at least one image")
	ErrForbidden            = errors.New("user not authorized to perform this action")
	ErrUnauthenticated      = errors.New("authentication required")
	ErrRemoteOperation      = errors.New("remote operation failed")
)

// RemoteError wraps a failed call to the document store, blob store or identity
// provider. errors.Is(err, ErrRemoteOperation) holds for every RemoteError.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() []error {
	return []error{ErrRemoteOperation, e.Err}
}

// Remote wraps err as a RemoteError. A nil err stays nil.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}

// ValidationError carries one message per invalid field, keyed by the JSON field name.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
