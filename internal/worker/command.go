package worker

// Command names understood by the built-in backends.
const (
	CommandTranscribe = "transcribe"
	CommandTranslate  = "translate"
)

// Command is a tagged request sent from the controller to the execution unit.
type Command struct {
	Name string
	Args any
}

// TranscribeArgs are the arguments of CommandTranscribe.
type TranscribeArgs struct {
	Path       string
	Language   string
	Parameters map[string]any
}

// TranslateArgs are the arguments of CommandTranslate.
type TranslateArgs struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
	Parameters     map[string]any
}

// OutcomeKind tags an Outcome so a failure never relies on type matching.
type OutcomeKind uint8

const (
	OutcomeResult OutcomeKind = iota + 1
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeResult:
		return "result"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the execution unit's reply to a Command.
type Outcome struct {
	Kind  OutcomeKind
	Value any
	Err   error
}

// Result wraps a successful value.
func Result(value any) Outcome {
	return Outcome{Kind: OutcomeResult, Value: value}
}

// Failure wraps a captured computation error.
func Failure(err error) Outcome {
	return Outcome{Kind: OutcomeFailure, Err: err}
}

// Failed reports whether the outcome carries a failure.
func (o Outcome) Failed() bool {
	return o.Kind != OutcomeResult
}
