package reader

// FormPhase gates which form controls are active.
type FormPhase string

const (
	PhaseEmpty   FormPhase = "empty"
	PhaseInvalid FormPhase = "invalid"
	PhaseValid   FormPhase = "valid"
	PhaseWaiting FormPhase = "waiting"
	PhaseError   FormPhase = "error"
)

type ErrorCode string

const (
	CodeInvalidURL    ErrorCode = "invalid_url"
	CodeDuplicateURL  ErrorCode = "duplicate_url"
	CodeMalformedFeed ErrorCode = "malformed_feed"
	CodeNotFound      ErrorCode = "not_found"
	CodeUnknown       ErrorCode = "unknown"
)

// ErrorKind classifies the last error. Message is only set for CodeUnknown
// and carries the raw diagnostic.
type ErrorKind struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message,omitempty"`
}

func ErrInvalidURL() *ErrorKind    { return &ErrorKind{Code: CodeInvalidURL} }
func ErrDuplicateURL() *ErrorKind  { return &ErrorKind{Code: CodeDuplicateURL} }
func ErrMalformedFeed() *ErrorKind { return &ErrorKind{Code: CodeMalformedFeed} }
func ErrNotFound() *ErrorKind      { return &ErrorKind{Code: CodeNotFound} }

func ErrUnknown(message string) *ErrorKind {
	return &ErrorKind{Code: CodeUnknown, Message: message}
}

func sameError(a, b *ErrorKind) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type Feed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	SourceURL   string `json:"source_url"`
}

type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

type State struct {
	FormPhase FormPhase  `json:"form_phase"`
	Error     *ErrorKind `json:"error"`
	Feeds     []Feed     `json:"feeds"`
	Articles  []Article  `json:"articles"`
}

func NewState() State {
	return State{
		FormPhase: PhaseEmpty,
		Feeds:     []Feed{},
		Articles:  []Article{},
	}
}

func (s State) clone() State {
	out := State{
		FormPhase: s.FormPhase,
		Feeds:     append([]Feed{}, s.Feeds...),
		Articles:  append([]Article{}, s.Articles...),
	}
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	return out
}
