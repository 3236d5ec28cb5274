package stt

// Outcome tags the result of a single recognizer call.
type Outcome int

const (
	// Recognized means the backend returned a non-empty transcript.
	Recognized Outcome = iota
	// Unintelligible means the backend was reached but heard no speech.
	// It is terminal for the request.
	Unintelligible
	// Unavailable means the backend could not be used (transport error,
	// bad status, bad response). It triggers the fallback.
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Recognized:
		return "recognized"
	case Unintelligible:
		return "unintelligible"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Recognition is what a Provider returns.
type Recognition struct {
	Outcome     Outcome
	Text        string
	RawResponse string // raw backend response, for logging
	Err         error  // cause when Outcome is Unavailable
}

func recognized(text, raw string) Recognition {
	return Recognition{Outcome: Recognized, Text: text, RawResponse: raw}
}

func unintelligible(raw string) Recognition {
	return Recognition{Outcome: Unintelligible, RawResponse: raw}
}

func unavailable(err error, raw string) Recognition {
	return Recognition{Outcome: Unavailable, Err: err, RawResponse: raw}
}

// Method names which tier produced a transcript.
type Method string

const (
	MethodPrimary  Method = "primary"
	MethodFallback Method = "fallback"
)

// Result is the outcome of transcribing one uploaded file.
type Result struct {
	Success    bool    `json:"success"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Method     Method  `json:"method,omitempty"`
	Backend    string  `json:"backend,omitempty"`
	Error      string  `json:"error,omitempty"`
	// Rejected marks failures caused by the upload itself rather than by a
	// backend.
	Rejected bool `json:"-"`
}
