package chatbot

import (
	"context"
	"errors"
	"iter"
	"net"
	"os"

	"github.com/medichat/medichat/internal/log"
)

// Fixed user-facing strings. These are the only texts callers ever see for
// stream failures; details go to the log.
const (
	// FallbackMessage is returned when the stream ends without an
	// assistant message carrying text.
	FallbackMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question or ask something else."

	// TimeoutMessage is returned when the underlying stream times out.
	TimeoutMessage = "The request timed out. Please try again with a shorter question."

	// ErrorMessage is returned for any other stream failure.
	ErrorMessage = "I apologize, but I encountered an error processing your request. Please try again or rephrase your question."
)

// Assemble walks an agent event stream to exhaustion and returns the final
// answer text. The last assistant-authored message with non-absent content
// wins; later events overwrite earlier candidates, so there is no early
// termination. Events without messages are skipped.
//
// Assemble never fails observably: a timeout from the stream degrades to
// TimeoutMessage, any other failure to ErrorMessage, and an empty stream to
// FallbackMessage. Failures are logged with full detail.
func Assemble(events iter.Seq2[Event, error], logger log.Logger) string {
	var final string
	found := false
	eventCount := 0

	for event, err := range events {
		if err != nil {
			if isTimeout(err) {
				logger.Error("agent stream timed out", "error", err, "events", eventCount)
				return TimeoutMessage
			}
			logger.Error("agent stream failed", "error", err, "events", eventCount)
			return ErrorMessage
		}

		eventCount++

		msg, ok := event.Last()
		if !ok {
			continue
		}

		text, hasText := Normalize(msg.Content)
		if msg.AssistantAuthored() && hasText {
			final = text
			found = true
		}
	}

	logger.Debug("agent stream completed", "events", eventCount, "answered", found)

	if !found {
		logger.Warn("no assistant message with text in stream", "events", eventCount)
		return FallbackMessage
	}
	return final
}

// isTimeout reports whether err is a deadline or timeout failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
