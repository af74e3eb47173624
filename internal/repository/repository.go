// Package repository persists conversation summaries and message logs through
// the key-value store. Persistence here is a durability nice-to-have: write
// failures are logged and swallowed so they can never break the live session.
package repository

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/lexavo/conseil/internal/model/chat"
	"github.com/lexavo/conseil/internal/store"
)

const (
	conversationListKey = "conseil/conversations"
	messagesKeyPrefix   = "conseil/messages/"
)

// Repository serializes chat state to a Store.
type Repository struct {
	store store.Store
	log   zerolog.Logger
}

// New returns a repository backed by s.
func New(s store.Store, log zerolog.Logger) *Repository {
	return &Repository{store: s, log: log.With().Str("component", "repository").Logger()}
}

func messagesKey(conversationID string) string {
	return messagesKeyPrefix + conversationID
}

// SaveMessages overwrites the persisted log for a conversation. Nil source
// lists are normalized to empty so the stored form is stable.
func (r *Repository) SaveMessages(conversationID string, messages []chat.Message) {
	records := make([]chat.Message, len(messages))
	copy(records, messages)
	for i := range records {
		if records[i].Sources == nil {
			records[i].Sources = []chat.Source{}
		}
	}

	data, err := json.Marshal(records)
	if err != nil {
		r.log.Warn().Err(err).Str("conversation", conversationID).Msg("encode messages failed")
		return
	}
	if err := r.store.Set(messagesKey(conversationID), data); err != nil {
		r.log.Warn().Err(err).Str("conversation", conversationID).Msg("persist messages failed")
	}
}

// LoadMessages returns the persisted log for a conversation, or an empty list
// when the key is absent or unreadable.
func (r *Repository) LoadMessages(conversationID string) []chat.Message {
	data, err := r.store.Get(messagesKey(conversationID))
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			r.log.Warn().Err(err).Str("conversation", conversationID).Msg("load messages failed")
		}
		return []chat.Message{}
	}

	var messages []chat.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		r.log.Warn().Err(err).Str("conversation", conversationID).Msg("decode messages failed")
		return []chat.Message{}
	}
	return messages
}

// DeleteMessages purges the persisted log for a conversation.
func (r *Repository) DeleteMessages(conversationID string) {
	if err := r.store.Delete(messagesKey(conversationID)); err != nil {
		r.log.Warn().Err(err).Str("conversation", conversationID).Msg("delete messages failed")
	}
}

// SaveConversationList overwrites the persisted summary list.
func (r *Repository) SaveConversationList(list []chat.Conversation) {
	data, err := json.Marshal(list)
	if err != nil {
		r.log.Warn().Err(err).Msg("encode conversation list failed")
		return
	}
	if err := r.store.Set(conversationListKey, data); err != nil {
		r.log.Warn().Err(err).Msg("persist conversation list failed")
	}
}

// LoadConversationList returns the persisted summaries, or an empty list when
// absent or unreadable.
func (r *Repository) LoadConversationList() []chat.Conversation {
	data, err := r.store.Get(conversationListKey)
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			r.log.Warn().Err(err).Msg("load conversation list failed")
		}
		return []chat.Conversation{}
	}

	var list []chat.Conversation
	if err := json.Unmarshal(data, &list); err != nil {
		r.log.Warn().Err(err).Msg("decode conversation list failed")
		return []chat.Conversation{}
	}
	return list
}
