package api

import (
	"cmp"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/wazobia-session/internal/domain"
	"github.com/ashureev/wazobia-session/internal/identity"
	"github.com/ashureev/wazobia-session/internal/remote"
	"github.com/go-chi/chi/v5"
)

const titleLength = 40

type conversation struct {
	remote.Conversation
	owner    int64
	messages []remote.StoredMessage
}

// Conversations keeps per-user chat transcripts in memory.
type Conversations struct {
	now func() time.Time

	mu        sync.Mutex
	nextID    int64
	nextMsgID int64
	byID      map[int64]*conversation
	latest    map[int64]int64 // owner -> most recent conversation
}

// NewConversations creates an empty transcript store. now may be nil.
func NewConversations(now func() time.Time) *Conversations {
	if now == nil {
		now = time.Now
	}
	return &Conversations{
		now:    now,
		byID:   make(map[int64]*conversation),
		latest: make(map[int64]int64),
	}
}

// Create starts a conversation for owner.
func (c *Conversations) Create(owner int64, title string) remote.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createLocked(owner, title).Conversation
}

// Record appends a user message and its reply to owner's latest
// conversation, starting one if needed.
func (c *Conversations) Record(owner int64, text string, reply remote.ChatResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.byID[c.latest[owner]]
	if !ok {
		conv = c.createLocked(owner, titleFrom(text))
	}

	now := c.now()
	c.appendLocked(conv, remote.StoredMessage{Role: domain.RoleUser, Content: text, CreatedAt: now})
	c.appendLocked(conv, remote.StoredMessage{
		Role:      domain.RoleAssistant,
		Content:   reply.Response,
		Language:  reply.Language,
		Intent:    reply.Intent,
		CreatedAt: now,
	})
	conv.UpdatedAt = now
}

// List returns owner's conversations, newest first.
func (c *Conversations) List(owner int64) []remote.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]remote.Conversation, 0)
	for _, conv := range c.byID {
		if conv.owner == owner {
			out = append(out, conv.Conversation)
		}
	}
	sortNewestFirst(out)
	return out
}

// Messages returns the transcript of id if owner owns it.
func (c *Conversations) Messages(owner, id int64) ([]remote.StoredMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv, ok := c.byID[id]
	if !ok || conv.owner != owner {
		return nil, false
	}
	out := make([]remote.StoredMessage, len(conv.messages))
	copy(out, conv.messages)
	return out, true
}

// Stats summarises owner's transcripts.
func (c *Conversations) Stats(owner int64) remote.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	conversations, messages := 0, 0
	languages := make(map[string]int)
	for _, conv := range c.byID {
		if conv.owner != owner {
			continue
		}
		conversations++
		messages += len(conv.messages)
		for _, m := range conv.messages {
			if m.Language != "" {
				languages[string(m.Language)]++
			}
		}
	}
	return remote.Stats{
		"total_conversations": conversations,
		"total_messages":      messages,
		"languages_used":      languages,
	}
}

func (c *Conversations) createLocked(owner int64, title string) *conversation {
	if title == "" {
		title = "New Conversation"
	}
	c.nextID++
	now := c.now()
	conv := &conversation{
		Conversation: remote.Conversation{ID: c.nextID, Title: title, CreatedAt: now, UpdatedAt: now},
		owner:        owner,
	}
	c.byID[conv.ID] = conv
	c.latest[owner] = conv.ID
	return conv
}

func (c *Conversations) appendLocked(conv *conversation, m remote.StoredMessage) {
	c.nextMsgID++
	m.ID = c.nextMsgID
	m.ConversationID = conv.ID
	conv.messages = append(conv.messages, m)
	conv.MessageCount = len(conv.messages)
}

func titleFrom(text string) string {
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > titleLength {
		return string(r[:titleLength]) + "..."
	}
	return text
}

func sortNewestFirst(convs []remote.Conversation) {
	slices.SortFunc(convs, func(a, b remote.Conversation) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

func (h *Handler) listConversations(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	JSON(w, http.StatusOK, h.conversations.List(user.ID))
}

func (h *Handler) createConversation(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())

	var req remote.CreateConversationRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	JSON(w, http.StatusOK, h.conversations.Create(user.ID, strings.TrimSpace(req.Title)))
}

func (h *Handler) conversationStats(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	JSON(w, http.StatusOK, h.conversations.Stats(user.ID))
}

func (h *Handler) conversationMessages(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}
	msgs, ok := h.conversations.Messages(user.ID, id)
	if !ok {
		Error(w, http.StatusNotFound, "Conversation not found")
		return
	}
	JSON(w, http.StatusOK, msgs)
}
