package chatbot

import (
	"strings"

	"github.com/firebase/genkit/go/ai"
)

// Canonical message roles. External role spellings are mapped onto these at
// the adapter boundary.
const (
	RoleUser      = "user"
	RoleAssistant = "ai"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

// Message is the canonical form of one agent-produced message. All external
// event representations are converted into this record before any
// classification or normalization happens.
type Message struct {
	// Role is the author discriminator ("ai", "user", "tool", "system").
	// May be empty when the source carried no role.
	Role string

	// Variant names the source's structural message type, lowercased
	// (e.g. "aimessagechunk"). Used only as a classification fallback
	// when Role is empty.
	Variant string

	// Content is the message payload in canonical form.
	Content Content
}

// AssistantAuthored reports whether the message was authored by the model.
// Role takes precedence; without a role, a variant name containing
// "aimessage" still qualifies.
func (m Message) AssistantAuthored() bool {
	switch m.Role {
	case "ai", "assistant":
		return true
	case "":
		return strings.Contains(m.Variant, "aimessage")
	default:
		return false
	}
}

// Event is one snapshot emitted by the agent stream: the ordered list of
// messages produced so far in the current turn. Consumed read-only.
type Event struct {
	Messages []Message
}

// Last returns the most recent message of the event.
func (e Event) Last() (Message, bool) {
	if len(e.Messages) == 0 {
		return Message{}, false
	}
	return e.Messages[len(e.Messages)-1], true
}

// MessageFromModel adapts a Genkit message into the canonical form.
// Text parts become text content; tool responses contribute their decoded
// output; other part kinds (media, tool requests) carry no answer text and
// map to absent.
func MessageFromModel(msg *ai.Message) Message {
	if msg == nil {
		return Message{Content: AbsentContent()}
	}

	items := make([]Content, 0, len(msg.Content))
	for _, part := range msg.Content {
		switch {
		case part == nil:
			continue
		case part.Text != "":
			items = append(items, TextContent(part.Text))
		case part.ToolResponse != nil:
			items = append(items, ContentFromValue(part.ToolResponse.Output))
		}
	}

	var content Content
	switch len(items) {
	case 0:
		content = AbsentContent()
	case 1:
		content = items[0]
	default:
		content = SequenceContent(items...)
	}

	return Message{Role: roleFromModel(msg.Role), Content: content}
}

// roleFromModel maps Genkit roles onto canonical roles.
func roleFromModel(role ai.Role) string {
	switch role {
	case ai.RoleModel:
		return RoleAssistant
	case ai.RoleUser:
		return RoleUser
	case ai.RoleTool:
		return RoleTool
	case ai.RoleSystem:
		return RoleSystem
	default:
		return string(role)
	}
}
