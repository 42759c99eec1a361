package chatbot

import "strings"

// ContentKind discriminates the variants of Content.
type ContentKind int

const (
	// KindAbsent marks content with no value at all.
	KindAbsent ContentKind = iota
	// KindText is a plain text fragment.
	KindText
	// KindRecord is a keyed record, optionally tagged with a "type" value.
	KindRecord
	// KindSequence is an ordered list of nested content.
	KindSequence
)

// Content is the canonical form of agent message content: a tagged union
// over text, keyed records, ordered sequences, and absent. External
// representations (decoded JSON, model parts) are converted once at the
// system boundary via ContentFromValue; everything downstream switches on
// Kind instead of probing dynamic types.
type Content struct {
	Kind ContentKind

	// Text holds the value for KindText.
	Text string

	// Tag holds the record's "type" discriminator for KindRecord.
	// Empty when the record carries no type key.
	Tag string

	// Fields holds the record's remaining keys for KindRecord.
	Fields map[string]Content

	// Items holds the elements for KindSequence.
	Items []Content
}

// AbsentContent returns the absent variant.
func AbsentContent() Content {
	return Content{Kind: KindAbsent}
}

// TextContent wraps a plain string.
func TextContent(s string) Content {
	return Content{Kind: KindText, Text: s}
}

// RecordContent builds a keyed record with an optional type tag.
func RecordContent(tag string, fields map[string]Content) Content {
	return Content{Kind: KindRecord, Tag: tag, Fields: fields}
}

// SequenceContent builds an ordered sequence.
func SequenceContent(items ...Content) Content {
	return Content{Kind: KindSequence, Items: items}
}

// ContentFromValue converts an arbitrary decoded-JSON value into canonical
// Content. Strings map to text, maps to records (with the "type" key lifted
// into the tag), slices to sequences. Anything else, including nil and
// non-string scalars, is absent.
func ContentFromValue(v any) Content {
	switch val := v.(type) {
	case nil:
		return AbsentContent()
	case string:
		return TextContent(val)
	case map[string]any:
		fields := make(map[string]Content, len(val))
		var tag string
		for k, fv := range val {
			if k == "type" {
				if s, ok := fv.(string); ok {
					tag = s
					continue
				}
			}
			fields[k] = ContentFromValue(fv)
		}
		return RecordContent(tag, fields)
	case []any:
		items := make([]Content, 0, len(val))
		for _, item := range val {
			items = append(items, ContentFromValue(item))
		}
		return SequenceContent(items...)
	default:
		return AbsentContent()
	}
}

// fallbackKeys are probed, in priority order, on records without a "text"
// type tag.
var fallbackKeys = [...]string{"content", "text", "value"}

// Normalize flattens content into a single plain-text string. The second
// return value reports whether any text was found; whitespace-only input
// counts as absent. Sequences join their surviving elements with a blank
// line. Terminates on any finite acyclic input; recursion depth equals the
// input nesting depth.
func Normalize(c Content) (string, bool) {
	switch c.Kind {
	case KindAbsent:
		return "", false

	case KindText:
		text := strings.TrimSpace(c.Text)
		return text, text != ""

	case KindRecord:
		// Text-tagged records carry their payload in the "text" field.
		if c.Tag == "text" {
			field, ok := c.Fields["text"]
			if !ok || field.Kind != KindText {
				return "", false
			}
			text := strings.TrimSpace(field.Text)
			return text, text != ""
		}
		for _, key := range fallbackKeys {
			if field, ok := c.Fields[key]; ok {
				return Normalize(field)
			}
		}
		return "", false

	case KindSequence:
		parts := make([]string, 0, len(c.Items))
		for _, item := range c.Items {
			if text, ok := Normalize(item); ok {
				parts = append(parts, text)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.TrimSpace(strings.Join(parts, "\n\n")), true

	default:
		return "", false
	}
}
