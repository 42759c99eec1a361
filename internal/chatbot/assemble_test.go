package chatbot

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medichat/medichat/internal/log"
)

// events builds a stream that yields each event in order without errors.
func events(evs ...Event) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for _, ev := range evs {
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// failAfter yields the given events and then an error.
func failAfter(err error, evs ...Event) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for _, ev := range evs {
			if !yield(ev, nil) {
				return
			}
		}
		yield(Event{}, err)
	}
}

func aiEvent(text string) Event {
	return Event{Messages: []Message{{Role: RoleAssistant, Content: TextContent(text)}}}
}

func TestAssemble_LastAssistantMessageWins(t *testing.T) {
	t.Parallel()

	got := Assemble(events(aiEvent("draft"), aiEvent("final")), log.NewNop())
	assert.Equal(t, "final", got)
}

func TestAssemble_LaterAbsentDoesNotOverwrite(t *testing.T) {
	t.Parallel()

	stream := events(
		aiEvent("the answer"),
		Event{Messages: []Message{{Role: RoleAssistant, Content: AbsentContent()}}},
	)
	assert.Equal(t, "the answer", Assemble(stream, log.NewNop()))
}

func TestAssemble_NonAssistantMessagesIgnored(t *testing.T) {
	t.Parallel()

	stream := events(
		Event{Messages: []Message{{Role: RoleUser, Content: TextContent("question")}}},
		aiEvent("answer"),
		Event{Messages: []Message{{Role: RoleTool, Content: TextContent("tool output")}}},
	)
	assert.Equal(t, "answer", Assemble(stream, log.NewNop()))
}

func TestAssemble_OnlyLastMessageOfEventConsidered(t *testing.T) {
	t.Parallel()

	// The assistant text is not the event's last message, so it is not a
	// candidate.
	stream := events(Event{Messages: []Message{
		{Role: RoleAssistant, Content: TextContent("buried")},
		{Role: RoleTool, Content: TextContent("tool output")},
	}})
	assert.Equal(t, FallbackMessage, Assemble(stream, log.NewNop()))
}

func TestAssemble_EmptyEventsSkipped(t *testing.T) {
	t.Parallel()

	stream := events(Event{}, aiEvent("answer"), Event{})
	assert.Equal(t, "answer", Assemble(stream, log.NewNop()))
}

func TestAssemble_NoQualifyingEventsReturnsFallback(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FallbackMessage, Assemble(events(), log.NewNop()))
}

func TestAssemble_TimeoutYieldsTimeoutMessage(t *testing.T) {
	t.Parallel()

	got := Assemble(failAfter(context.DeadlineExceeded, aiEvent("partial")), log.NewNop())
	assert.Equal(t, TimeoutMessage, got)
}

func TestAssemble_WrappedTimeoutRecognized(t *testing.T) {
	t.Parallel()

	err := errors.Join(errors.New("calling model"), context.DeadlineExceeded)
	assert.Equal(t, TimeoutMessage, Assemble(failAfter(err), log.NewNop()))
}

func TestAssemble_GenericErrorYieldsApology(t *testing.T) {
	t.Parallel()

	got := Assemble(failAfter(errors.New("connection refused")), log.NewNop())
	assert.Equal(t, ErrorMessage, got)
}

func TestAssemble_NormalizesStructuredContent(t *testing.T) {
	t.Parallel()

	content := SequenceContent(
		RecordContent("text", map[string]Content{"text": TextContent("Diabetes is a chronic condition.")}),
		RecordContent("text", map[string]Content{"text": TextContent("Consult a professional.")}),
	)
	stream := events(Event{Messages: []Message{{Role: RoleAssistant, Content: content}}})

	got := Assemble(stream, log.NewNop())
	assert.Equal(t, "Diabetes is a chronic condition.\n\nConsult a professional.", got)
}

func TestEventStream_YieldsPrefixSnapshots(t *testing.T) {
	t.Parallel()

	msgs := []Message{
		{Role: RoleUser, Content: TextContent("q")},
		{Role: RoleAssistant, Content: TextContent("a")},
	}

	var got []Event
	for ev, err := range eventStream(msgs) {
		assert.NoError(t, err)
		got = append(got, ev)
	}

	assert.Len(t, got, 2)
	assert.Len(t, got[0].Messages, 1)
	assert.Len(t, got[1].Messages, 2)
	last, ok := got[1].Last()
	assert.True(t, ok)
	assert.Equal(t, RoleAssistant, last.Role)
}
