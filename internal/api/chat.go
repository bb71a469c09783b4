package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ashureev/wazobia-session/internal/domain"
	"github.com/ashureev/wazobia-session/internal/identity"
	"github.com/ashureev/wazobia-session/internal/remote"
)

var greetings = map[domain.LanguageCode]string{
	domain.LanguageEnglish: "Hello! I heard you say",
	domain.LanguageHausa:   "Sannu! Na ji ka ce",
	domain.LanguageYoruba:  "Bawo ni! Mo gbo pe o so",
	domain.LanguagePidgin:  "How far! I hear say you talk",
}

// Marker words per language. Detection counts hits over word count.
var markers = map[domain.LanguageCode][]string{
	domain.LanguageHausa:  {"sannu", "yaya", "ina", "lafiya", "kwana", "nagode", "don", "allah", "aiki", "gida"},
	domain.LanguageYoruba: {"bawo", "ni", "e", "kaaro", "daadaa", "ese", "mo", "fe", "owo", "ile"},
	domain.LanguagePidgin: {"wetin", "dey", "abeg", "how", "far", "una", "wahala", "sabi", "oga", "pikin"},
}

type detectRequest struct {
	Text string `json:"text"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	h.chatRequests.Add(1)

	var req remote.ChatRequest
	if !decode(w, r, &req) {
		return
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		Error(w, http.StatusUnprocessableEntity, "Message cannot be empty")
		return
	}

	detected := detectLanguage(text)
	lang := detected.Language
	for _, code := range req.PreferredLanguages {
		if domain.IsSupported(code) {
			lang = code
			break
		}
	}

	resp := remote.ChatResponse{
		Response: fmt.Sprintf("%s: %q", greetings[lang], text),
		Language: lang,
		Intent:   intentFor(text),
		Metadata: remote.ChatMetadata{
			DetectionConfidence: detected.Confidence,
			RelevantDocuments:   len(req.ConversationHistory),
		},
	}

	if user := identity.UserFromContext(r.Context()); user != nil {
		h.conversations.Record(user.ID, text, resp)
	}

	JSON(w, http.StatusOK, resp)
}

func (h *Handler) translate(w http.ResponseWriter, r *http.Request) {
	h.translateRequests.Add(1)

	var req remote.TranslateRequest
	if !decode(w, r, &req) {
		return
	}
	if !domain.IsSupported(req.TargetLanguage) {
		Error(w, http.StatusBadRequest, fmt.Sprintf("Unsupported target language: %s", req.TargetLanguage))
		return
	}
	source := req.SourceLanguage
	if source == "" {
		source = domain.LanguageEnglish
	}

	JSON(w, http.StatusOK, remote.TranslateResponse{
		OriginalText:   req.Text,
		TranslatedText: fmt.Sprintf("[%s] %s", req.TargetLanguage, req.Text),
		SourceLanguage: source,
		TargetLanguage: req.TargetLanguage,
		Metadata:       map[string]any{"engine": "devserver"},
	})
}

func (h *Handler) detect(w http.ResponseWriter, r *http.Request) {
	h.detectRequests.Add(1)

	var req detectRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		Error(w, http.StatusUnprocessableEntity, "Text cannot be empty")
		return
	}
	JSON(w, http.StatusOK, detectLanguage(req.Text))
}

func detectLanguage(text string) remote.Detection {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z')
	})

	scores := make(map[string]float64, len(markers)+1)
	best, bestScore := domain.LanguageEnglish, 0.0
	matched := 0
	for code, list := range markers {
		hits := 0
		for _, w := range words {
			for _, m := range list {
				if w == m {
					hits++
					break
				}
			}
		}
		var score float64
		if len(words) > 0 {
			score = float64(hits) / float64(len(words))
		}
		scores[string(code)] = score
		if hits > 0 {
			matched++
		}
		if score > bestScore || (score == bestScore && score > 0 && code < best) {
			best, bestScore = code, score
		}
	}

	if bestScore == 0 {
		scores[string(domain.LanguageEnglish)] = 1
		return remote.Detection{Language: domain.LanguageEnglish, Confidence: 0.5, AllScores: scores}
	}
	scores[string(domain.LanguageEnglish)] = 1 - bestScore
	return remote.Detection{
		Language:        best,
		Confidence:      min(0.5+bestScore/2, 1),
		AllScores:       scores,
		IsMixedLanguage: matched > 1,
	}
}

func intentFor(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.HasSuffix(strings.TrimSpace(lower), "?"):
		return "question"
	case strings.Contains(lower, "translate"):
		return "translation"
	default:
		return "general"
	}
}

func supportedCodes() []domain.LanguageCode {
	langs := domain.SupportedLanguages()
	codes := make([]domain.LanguageCode, 0, len(langs))
	for _, l := range langs {
		codes = append(codes, l.Code)
	}
	return codes
}
