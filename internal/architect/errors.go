package architect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/renderinc/notion-architect/internal/blueprint"
)

// UnsupportedPropertyTypeError rejects a database property kind the remote
// store cannot create. It is a validation failure.
type UnsupportedPropertyTypeError struct {
	Property string
	Kind     blueprint.PropertyKind
}

func (e *UnsupportedPropertyTypeError) Error() string {
	return fmt.Sprintf("property %q: type '%s' is currently unsupported", e.Property, e.Kind)
}

func (e *UnsupportedPropertyTypeError) Unwrap() error { return blueprint.ErrInvalid }

// MaterializationError reports a failed remote call. Path holds the child
// indices leading from the materialized root to the failing node (a column
// list contributes the column index and then the child index). Nodes
// created before the failure are left in place.
type MaterializationError struct {
	Path    []int
	Op      string
	Created int
	Err     error
}

func (e *MaterializationError) Error() string {
	return fmt.Sprintf("%s at %s failed after %d nodes created: %v", e.Op, FormatPath(e.Path), e.Created, e.Err)
}

func (e *MaterializationError) Unwrap() error { return e.Err }

// FormatPath renders a child-index path as "/0/2/1" ("/" for the root).
func FormatPath(path []int) string {
	if len(path) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, i := range path {
		sb.WriteByte('/')
		sb.WriteString(strconv.Itoa(i))
	}
	return sb.String()
}
