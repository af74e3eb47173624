// Package controller owns the in-memory conversation state for one session:
// the active conversation, its transcript, the loading flag and the last
// error. It orchestrates the assistant client and the repository; the
// presentation layer only reads snapshots and invokes actions.
package controller

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lexavo/conseil/internal/client"
	"github.com/lexavo/conseil/internal/model/chat"
	"github.com/lexavo/conseil/internal/repository"
)

// fallbackErrMsg covers failures that are not APIErrors from the client.
const fallbackErrMsg = "Erreur lors de l'envoi du message"

// Assistant is the slice of the remote client the controller needs.
type Assistant interface {
	Send(ctx context.Context, message, conversationID, userID string) (client.ChatReply, error)
}

// Controller is the single authoritative view of session chat state.
type Controller struct {
	repo      *repository.Repository
	assistant Assistant
	userID    string
	log       zerolog.Logger

	mu            sync.RWMutex
	conversations []chat.Conversation
	activeID      string
	messages      []chat.Message
	loading       bool
	errMsg        string

	// sendLocks serializes overlapping sends per conversation so two
	// interleaved exchanges can never drop each other's append-and-persist.
	lockMu    sync.Mutex
	sendLocks map[string]*sync.Mutex
}

// New wires a controller to its repository and assistant client. Call Init
// before use.
func New(repo *repository.Repository, assistant Assistant, userID string, log zerolog.Logger) *Controller {
	return &Controller{
		repo:      repo,
		assistant: assistant,
		userID:    userID,
		log:       log.With().Str("component", "controller").Logger(),
		sendLocks: make(map[string]*sync.Mutex),
	}
}

// Snapshot is a copy of the state handed to renderers.
type Snapshot struct {
	ActiveID      string              `json:"activeId"`
	Messages      []chat.Message      `json:"messages"`
	Conversations []chat.Conversation `json:"conversations"`
	Loading       bool                `json:"loading"`
	Err           string              `json:"error,omitempty"`
}

// Snapshot returns a consistent copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	messages := make([]chat.Message, len(c.messages))
	copy(messages, c.messages)
	conversations := make([]chat.Conversation, len(c.conversations))
	copy(conversations, c.conversations)

	return Snapshot{
		ActiveID:      c.activeID,
		Messages:      messages,
		Conversations: conversations,
		Loading:       c.loading,
		Err:           c.errMsg,
	}
}

// Init loads persisted state. With existing conversations it activates the
// most recently updated one; otherwise it creates and persists a fresh
// conversation so the store is never empty-but-uninitialized.
func (c *Controller) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.repo.LoadConversationList()
	if len(list) == 0 {
		c.startNewConversationLocked()
		return
	}

	sortByUpdated(list)
	c.conversations = list
	c.activeID = list[0].ID
	c.messages = c.repo.LoadMessages(c.activeID)
	c.log.Debug().Str("conversation", c.activeID).Int("count", len(list)).Msg("session restored")
}

// StartNewConversation resets the transcript and prepends a fresh summary.
// It returns the new conversation id and always succeeds.
func (c *Controller) StartNewConversation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startNewConversationLocked()
}

func (c *Controller) startNewConversationLocked() string {
	now := time.Now().UTC()
	conversation := chat.Conversation{
		ID:        uuid.NewString(),
		Title:     chat.DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}

	c.conversations = append([]chat.Conversation{conversation}, c.conversations...)
	c.activeID = conversation.ID
	c.messages = []chat.Message{}
	c.errMsg = ""
	c.repo.SaveConversationList(c.conversations)

	c.log.Debug().Str("conversation", conversation.ID).Msg("new conversation")
	return conversation.ID
}

// SendMessage runs one exchange: user message out, assistant reply back,
// both appended and persisted atomically with respect to the conversation.
// Blank input is a no-op. The returned error mirrors the recorded state
// error for callers that want it inline.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	c.mu.Lock()
	if c.activeID == "" {
		c.startNewConversationLocked()
	}
	conversationID := c.activeID
	c.loading = true
	c.errMsg = ""
	c.mu.Unlock()

	// One exchange at a time per conversation; a second send queues here
	// instead of interleaving its append with ours.
	lock := c.sendLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	reply, err := c.assistant.Send(ctx, trimmed, conversationID, c.userID)
	if err != nil {
		c.recordFailure(err)
		return err
	}

	c.recordExchange(conversationID, trimmed, reply)
	return nil
}

func (c *Controller) sendLock(conversationID string) *sync.Mutex {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()

	lock, ok := c.sendLocks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		c.sendLocks[conversationID] = lock
	}
	return lock
}

func (c *Controller) recordFailure(err error) {
	message := fallbackErrMsg
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		message = apiErr.Message
	}

	c.mu.Lock()
	c.loading = false
	c.errMsg = message
	c.mu.Unlock()

	c.log.Warn().Err(err).Msg("send failed")
}

// recordExchange appends the user/assistant pair and persists. State is
// re-read under the lock rather than captured before the network call, so a
// conversation switched away from mid-flight still persists correctly under
// its own id.
func (c *Controller) recordExchange(conversationID, text string, reply client.ChatReply) {
	now := time.Now().UTC()
	assistantAt := reply.Timestamp
	if assistantAt.IsZero() {
		assistantAt = now
	}

	userMsg := chat.Message{
		ID:             uuid.NewString(),
		Role:           chat.RoleUser,
		Content:        text,
		CreatedAt:      now,
		ConversationID: conversationID,
		Sources:        []chat.Source{},
	}
	assistantMsg := chat.Message{
		ID:             uuid.NewString(),
		Role:           chat.RoleAssistant,
		Content:        reply.Message,
		CreatedAt:      assistantAt,
		ConversationID: conversationID,
		Sources:        reply.Sources,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeID == conversationID {
		c.messages = append(c.messages, userMsg, assistantMsg)
		c.repo.SaveMessages(conversationID, c.messages)
	} else {
		log := c.repo.LoadMessages(conversationID)
		log = append(log, userMsg, assistantMsg)
		c.repo.SaveMessages(conversationID, log)
	}

	for i := range c.conversations {
		if c.conversations[i].ID != conversationID {
			continue
		}
		if c.conversations[i].MessageCount == 0 {
			c.conversations[i].Title = chat.DeriveTitle(text)
		}
		c.conversations[i].UpdatedAt = now
		c.conversations[i].MessageCount += 2
		c.conversations[i].LastMessage = chat.Preview(text)
		break
	}
	sortByUpdated(c.conversations)
	c.repo.SaveConversationList(c.conversations)

	c.loading = false
}

// LoadConversation makes id the active conversation and replaces the
// transcript with its persisted log.
func (c *Controller) LoadConversation(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.activeID = id
	c.messages = c.repo.LoadMessages(id)
	c.errMsg = ""
	c.loading = false
}

// DeleteConversation purges the conversation and its log. Deleting the
// active conversation immediately starts a fresh one so the UI never points
// at a dead id.
func (c *Controller) DeleteConversation(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.repo.DeleteMessages(id)

	filtered := c.conversations[:0]
	for _, conversation := range c.conversations {
		if conversation.ID != id {
			filtered = append(filtered, conversation)
		}
	}
	c.conversations = filtered
	c.repo.SaveConversationList(c.conversations)

	c.lockMu.Lock()
	delete(c.sendLocks, id)
	c.lockMu.Unlock()

	if c.activeID == id {
		c.startNewConversationLocked()
	}
}

// ClearError clears the error field only.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.errMsg = ""
	c.mu.Unlock()
}

func sortByUpdated(list []chat.Conversation) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
}
