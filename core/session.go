package core

import "time"

// EntryKind discriminates the payload carried by a HistoryEntry.
// The set is open: kinds unknown to this package are stored and returned unchanged.
type EntryKind string

const (
	EntryKindMessage       EntryKind = "message"
	EntryKindSearchContext EntryKind = "search_context"
	EntryKindToolResult    EntryKind = "tool_result"
)

// Attribute keys used by the built-in entry kinds.
const (
	AttrQuery      = "query"
	AttrResultKeys = "result_keys"
	AttrToolName   = "tool"
)

// HistoryEntry is one element of a conversation's running memory.
// Kind selects how Role, Text and Attrs are interpreted.
type HistoryEntry struct {
	Kind  EntryKind
	Role  string
	Text  string
	Attrs map[string]string
	At    time.Time
}

// NewMessageEntry creates a chat message entry.
func NewMessageEntry(role, text string) HistoryEntry {
	return HistoryEntry{Kind: EntryKindMessage, Role: role, Text: text, At: time.Now().UTC()}
}

// NewSearchContextEntry records the query that produced retrieval context
// and the keys of the items that were shown to the model.
func NewSearchContextEntry(query string, resultKeys string) HistoryEntry {
	return HistoryEntry{
		Kind:  EntryKindSearchContext,
		Text:  query,
		Attrs: map[string]string{AttrQuery: query, AttrResultKeys: resultKeys},
		At:    time.Now().UTC(),
	}
}

// NewToolResultEntry records output returned by a named tool.
func NewToolResultEntry(tool, output string) HistoryEntry {
	return HistoryEntry{
		Kind:  EntryKindToolResult,
		Text:  output,
		Attrs: map[string]string{AttrToolName: tool},
		At:    time.Now().UTC(),
	}
}

// Attr returns the attribute value for key, or "".
func (e HistoryEntry) Attr(key string) string {
	if e.Attrs == nil {
		return ""
	}
	return e.Attrs[key]
}

// ConversationContext is the per-session memory consumed by the chat collaborator.
type ConversationContext struct {
	SessionID string
	UserID    string
	History   []HistoryEntry
	UpdatedAt time.Time
}

// Append adds an entry and keeps at most maxHistory of the newest entries.
// A maxHistory of zero or less keeps everything.
func (c *ConversationContext) Append(entry HistoryEntry, maxHistory int) {
	c.History = append(c.History, entry)
	if maxHistory > 0 && len(c.History) > maxHistory {
		c.History = append([]HistoryEntry(nil), c.History[len(c.History)-maxHistory:]...)
	}
	c.UpdatedAt = time.Now().UTC()
}
