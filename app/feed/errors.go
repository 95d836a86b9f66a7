package feed

import "fmt"

// TransportError is a hard failure of the network or HTTP layer. The
// ingestion core never retries these; they abort the run.
type TransportError struct {
	Source string
	URL    string
	Status int
	Msg    string
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s for source %s (%s)", e.Msg, e.Source, e.URL)
	}
	return fmt.Sprintf("unable to download the feed for source %s (%s): %s", e.Source, e.URL, e.Msg)
}

// FatalParseError is a malformed document that yielded no usable entries.
// The raw bytes have already been dumped for review by the time this is
// returned.
type FatalParseError struct {
	Source string
	URL    string
	Msg    string
}

func (e *FatalParseError) Error() string {
	return fmt.Sprintf("received invalid feed content from source %s (%s): %s", e.Source, e.URL, e.Msg)
}
