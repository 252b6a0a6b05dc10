package application

import (
	"errors"
	"fmt"
)

// Errors returned by the chatbot.
var (
	ErrEmptyQuery    = errors.New("query is empty")
	ErrModelRequired = errors.New("model client is required")
)

// StageError reports the pipeline stage a request failed in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ErrorReply is the text front ends show for a failed request.
func ErrorReply(err error) string {
	return "Sorry, an error occurred: " + err.Error()
}
