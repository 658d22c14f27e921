package aggregate

import "fmt"

// ShapeError reports a required field missing from an upstream record.
// The whole family is discarded when one is returned.
type ShapeError struct {
	Family Family
	Field  string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: missing %s", e.Family, e.Field)
	}
	return fmt.Sprintf("%s: %s: %s", e.Family, e.Field, e.Reason)
}

func shapeError(f Family, field, format string, args ...any) *ShapeError {
	return &ShapeError{Family: f, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// AmbiguousAttributeError reports an attribute that carried more values than
// expected. It is a warning: the affected metric is omitted, the rest kept.
type AmbiguousAttributeError struct {
	Attribute string
	Count     int
}

func (e *AmbiguousAttributeError) Error() string {
	return fmt.Sprintf("%q account attribute has %d values, expected one", e.Attribute, e.Count)
}
