package domain

const (
	FallbackNoAnswer = "I couldn't understand that."
	FallbackError    = "I encountered an error while processing your request."
)

// Sampling holds the decoding parameters sent with every generation request.
type Sampling struct {
	Temperature     float64
	TopP            float64
	TopK            int
	CandidateCount  int
	MaxOutputTokens int
	StopSequences   []string
}

func DefaultSampling() Sampling {
	return Sampling{
		Temperature:     0.7,
		TopP:            0.8,
		TopK:            40,
		CandidateCount:  1,
		MaxOutputTokens: 2048,
		StopSequences:   []string{"User:", "Assistant:"},
	}
}

// FailureReason tells why a generation produced no usable text.
type FailureReason string

const (
	FailureNone         FailureReason = ""
	FailureEmpty        FailureReason = "empty"
	FailureTimeout      FailureReason = "timeout"
	FailureCanceled     FailureReason = "canceled"
	FailureTransport    FailureReason = "transport"
	FailureAPITransient FailureReason = "api_transient"
	FailureAPIPermanent FailureReason = "api_permanent"
	FailureMalformed    FailureReason = "malformed"
)

// Generation is the outcome of one call to the text generation service.
type Generation struct {
	Text    string
	Failure FailureReason
	Err     error
}

func (g Generation) OK() bool {
	return g.Failure == FailureNone
}

// Reply returns the text to show the user. Failures map to one of the
// fixed fallback strings, so a reply is never empty.
func (g Generation) Reply() string {
	switch g.Failure {
	case FailureNone:
		return g.Text
	case FailureEmpty:
		return FallbackNoAnswer
	default:
		return FallbackError
	}
}
