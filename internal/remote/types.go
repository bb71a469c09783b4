// Package remote implements the HTTP client for the Wazobia assistant service.
package remote

import (
	"time"

	"github.com/ashureev/wazobia-session/internal/domain"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message             string                `json:"message"`
	ConversationHistory []domain.HistoryEntry `json:"conversation_history"`
	PreferredLanguages  []domain.LanguageCode `json:"preferred_languages,omitempty"`
}

// ChatMetadata carries detection details for a chat reply.
type ChatMetadata struct {
	DetectionConfidence float64 `json:"detection_confidence"`
	RelevantDocuments   int     `json:"relevant_documents,omitempty"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Response string              `json:"response"`
	Language domain.LanguageCode `json:"language"`
	Intent   string              `json:"intent"`
	Metadata ChatMetadata        `json:"metadata"`
}

// TranslateRequest is the body of POST /translate.
type TranslateRequest struct {
	Text           string              `json:"text"`
	SourceLanguage domain.LanguageCode `json:"source_language"`
	TargetLanguage domain.LanguageCode `json:"target_language"`
}

// TranslateResponse is the body returned by POST /translate.
type TranslateResponse struct {
	OriginalText   string              `json:"original_text"`
	TranslatedText string              `json:"translated_text"`
	SourceLanguage domain.LanguageCode `json:"source_language"`
	TargetLanguage domain.LanguageCode `json:"target_language"`
	Metadata       map[string]any      `json:"metadata,omitempty"`
}

// Detection is the body returned by POST /detect-language.
type Detection struct {
	Language        domain.LanguageCode `json:"language"`
	Confidence      float64             `json:"confidence"`
	AllScores       map[string]float64  `json:"all_scores"`
	IsMixedLanguage bool                `json:"is_mixed_language"`
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

// Conversation is a server-side conversation summary.
type Conversation struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateConversationRequest is the body of POST /conversations/.
type CreateConversationRequest struct {
	Title string `json:"title,omitempty"`
}

// StoredMessage is a message persisted by the service.
type StoredMessage struct {
	ID             int64               `json:"id"`
	ConversationID int64               `json:"conversation_id"`
	Role           domain.Role         `json:"role"`
	Content        string              `json:"content"`
	Language       domain.LanguageCode `json:"language,omitempty"`
	Intent         string              `json:"intent,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// Stats is a free-form statistics document.
type Stats map[string]any
