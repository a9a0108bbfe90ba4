// Package degrade carries a value that may have been produced by a fallback.
package degrade

// Result is either Ok(value) or Degraded(value, reason). In both cases Value
// is usable.
type Result[T any] struct {
	Value  T
	Reason string
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Degraded[T any](v T, reason string) Result[T] {
	if reason == "" {
		reason = "unspecified"
	}
	return Result[T]{Value: v, Reason: reason}
}

// IsDegraded reports whether the value came from a fallback.
func (r Result[T]) IsDegraded() bool {
	return r.Reason != ""
}
