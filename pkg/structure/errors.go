package structure

import (
	"errors"
	"fmt"

	"github.com/EchoTools/structedit/pkg/field"
)

var (
	// ErrIndeterminatePlacement is returned when an insertion cannot resolve a
	// position. No mutation has been applied.
	ErrIndeterminatePlacement = errors.New("insertion position indeterminate")

	// ErrFieldAttached is returned when inserting a structure that is still owned elsewhere.
	ErrFieldAttached = errors.New("field is owned by another structure")

	// ErrNotRemovable is returned when inserting or removing a field that is not a
	// removable sub-structure. Fillers are never removable.
	ErrNotRemovable = errors.New("field is not a removable sub-structure")

	// ErrEmptyEntry is returned when a section entry reads as zero bytes, so
	// its count cannot be trusted.
	ErrEmptyEntry = errors.New("section entry occupies no bytes")

	// ErrNotOwned is returned when removing a field the structure does not own.
	ErrNotOwned = errors.New("field is not owned by this structure")
)

// PlacementError identifies the structure and kind of an insertion that could not be placed.
type PlacementError struct {
	Structure string
	Kind      field.Kind
	Reason    string
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("insert %s into %s: %s: %v", e.Kind.Name(), e.Structure, e.Reason, ErrIndeterminatePlacement)
}

func (e *PlacementError) Unwrap() error {
	return ErrIndeterminatePlacement
}

// ResourceError reports a resource that could not be parsed. The whole tree is discarded.
type ResourceError struct {
	ID  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource %s unreadable: %v", e.ID, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
