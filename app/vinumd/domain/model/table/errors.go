package table

import "fmt"

// RefError is returned by Validate for a dangling object reference.
type RefError struct {
	Kind     string
	Index    int
	Ref      string
	RefIndex int
}

func (e *RefError) Error() string {
	return fmt.Sprintf("%s %d refers to nonexistent %s %d", e.Kind, e.Index, e.Ref, e.RefIndex)
}
