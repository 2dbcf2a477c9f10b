package okta

// Outcome classifies one identity provider call.
type Outcome int

const (
	// OutcomeOK means the call succeeded and Value is populated
	OutcomeOK Outcome = iota
	// OutcomeNotFound means the provider answered with a non-2xx status
	OutcomeNotFound
	// OutcomeTransport means no usable answer arrived: dial error, timeout or open circuit
	OutcomeTransport
	// OutcomeShape means a 2xx answer whose body did not have the expected structure
	OutcomeShape
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeTransport:
		return "transport"
	case OutcomeShape:
		return "shape"
	default:
		return "unknown"
	}
}

// Result is the outcome of one provider call. Err is nil only for OutcomeOK.
type Result[T any] struct {
	Outcome Outcome
	Value   T
	Err     error
}

// OK reports whether the call succeeded
func (r Result[T]) OK() bool {
	return r.Outcome == OutcomeOK
}

func ok[T any](value T) Result[T] {
	return Result[T]{Outcome: OutcomeOK, Value: value}
}

func failed[T any](outcome Outcome, err error) Result[T] {
	return Result[T]{Outcome: outcome, Err: err}
}
