// Package ui renders controller snapshots to a terminal. Renderers are
// stateless functions over io.Writer, driven purely by the data handed in.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/lexavo/conseil/internal/model/chat"
)

const degradedBanner = "⚠ Service dégradé — le serveur ne répond pas correctement"

// RenderBanner prints the degraded-service banner when the backend is down.
func RenderBanner(w io.Writer, healthy bool) {
	if !healthy {
		fmt.Fprintln(w, degradedBanner)
	}
}

// RenderErrorPanel prints the dismissible error line, if any.
func RenderErrorPanel(w io.Writer, errMsg string) {
	if errMsg != "" {
		fmt.Fprintf(w, "✗ %s (tapez /dismiss pour fermer)\n", errMsg)
	}
}

// RenderConversationList prints the sidebar: numbered summaries, most
// recently updated first, active one marked.
func RenderConversationList(w io.Writer, conversations []chat.Conversation, activeID string) {
	for i, conversation := range conversations {
		marker := " "
		if conversation.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %2d. %s (%d messages)\n", marker, i+1, conversation.Title, conversation.MessageCount)
		if conversation.LastMessage != "" {
			fmt.Fprintf(w, "       %s\n", conversation.LastMessage)
		}
	}
}

// RenderTranscript prints the active conversation's messages in order.
func RenderTranscript(w io.Writer, messages []chat.Message) {
	for _, message := range messages {
		RenderMessage(w, message)
	}
}

// RenderMessage prints one turn, with citation footnotes for assistant
// replies.
func RenderMessage(w io.Writer, message chat.Message) {
	fmt.Fprintf(w, "%s %s\n", rolePrefix(message.Role), message.Content)
	if message.Role == chat.RoleAssistant && len(message.Sources) > 0 {
		RenderSources(w, message.Sources)
	}
}

// RenderSources prints citation footnotes.
func RenderSources(w io.Writer, sources []chat.Source) {
	for i, source := range sources {
		fmt.Fprintf(w, "    [%d] %s\n", i+1, sourceLabel(source))
	}
}

func sourceLabel(source chat.Source) string {
	label := source.Title
	if label == "" {
		label = source.DocumentName
	}
	if label == "" {
		label = "document"
	}

	var details []string
	if source.Page > 0 {
		details = append(details, fmt.Sprintf("p.%d", source.Page))
	}
	if source.Score > 0 {
		details = append(details, fmt.Sprintf("pertinence %.2f", source.Score))
	}
	if len(details) > 0 {
		label += " (" + strings.Join(details, ", ") + ")"
	}
	if source.URL != "" {
		label += " — " + source.URL
	}
	return label
}

func rolePrefix(role chat.Role) string {
	switch role {
	case chat.RoleUser:
		return "Vous      >"
	case chat.RoleAssistant:
		return "Assistant >"
	default:
		return "Système   >"
	}
}
