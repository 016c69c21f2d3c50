package model

// OutcomeStatus tags the result of a stage that degrades instead of failing.
type OutcomeStatus string

const (
	OutcomeOK       OutcomeStatus = "ok"
	OutcomeDegraded OutcomeStatus = "degraded"
	OutcomeFailed   OutcomeStatus = "failed"
)

// Outcome carries a value together with whether it is real data, a degraded
// substitute, or a failure placeholder. Callers must check Status before
// treating Value as authoritative.
type Outcome[T any] struct {
	Status OutcomeStatus `json:"status"`
	Value  T             `json:"value"`
	Reason string        `json:"reason,omitempty"`
}

// Ok wraps a real value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Status: OutcomeOK, Value: v}
}

// Degraded wraps a substitute value and the reason it was substituted.
func Degraded[T any](v T, reason string) Outcome[T] {
	return Outcome[T]{Status: OutcomeDegraded, Value: v, Reason: reason}
}

// Failed wraps a placeholder value for a stage that produced nothing usable.
func Failed[T any](v T, reason string) Outcome[T] {
	return Outcome[T]{Status: OutcomeFailed, Value: v, Reason: reason}
}

// IsOK reports whether the outcome holds real data.
func (o Outcome[T]) IsOK() bool { return o.Status == OutcomeOK }
