package chat

import (
	"time"

	"github.com/lexavo/conseil/pkg/textutil"
)

// DefaultTitle is assigned to a conversation before its first user message.
const DefaultTitle = "Nouvelle consultation"

const (
	titleMaxRunes   = 30
	previewMaxRunes = 50
)

// Conversation is the summary record for a thread. The full message log is
// stored separately under the same id.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
	LastMessage  string    `json:"lastMessage,omitempty"`
}

// DeriveTitle builds a conversation title from its first user message.
func DeriveTitle(firstMessage string) string {
	return textutil.Truncate(firstMessage, titleMaxRunes)
}

// Preview builds the sidebar preview text from the latest user message.
func Preview(message string) string {
	return textutil.Truncate(message, previewMaxRunes)
}
