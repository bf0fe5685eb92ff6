package reader

// Event is a user action or fetch outcome delivered to the controller.
type Event interface {
	eventName() string
}

// InputChanged fires on every keystroke with the full input text.
type InputChanged struct {
	Text string
}

type SubmitClicked struct{}

type FetchSucceeded struct {
	URL  string
	Body []byte
}

type FetchFailed struct {
	URL string
	Err error
}

func (InputChanged) eventName() string   { return "input_changed" }
func (SubmitClicked) eventName() string  { return "submit_clicked" }
func (FetchSucceeded) eventName() string { return "fetch_succeeded" }
func (FetchFailed) eventName() string    { return "fetch_failed" }

// FetchRequest is the side effect produced by a successful submit.
type FetchRequest struct {
	URL string
}

// ResultEvent converts a fetch outcome into the matching event.
func ResultEvent(url string, body []byte, err error) Event {
	if err != nil {
		return FetchFailed{URL: url, Err: err}
	}
	return FetchSucceeded{URL: url, Body: body}
}
