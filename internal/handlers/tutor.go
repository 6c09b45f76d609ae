package handlers

import (
	"fmt"
	"net/http"

	"github.com/lehigh-university-libraries/studyshelf/internal/models"
	"github.com/lehigh-university-libraries/studyshelf/internal/tutor"
)

type tutorRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// HandleTutor serves /api/tutor/{question,tip,chat}.
func (h *Handler) HandleTutor(w http.ResponseWriter, r *http.Request, _ models.User) {
	parts := pathParts(r.URL.Path, "/api/tutor/")
	if len(parts) != 1 {
		h.writeError(w, "Not found", http.StatusNotFound)
		return
	}

	if parts[0] == "chat" && r.Method == "GET" {
		subject, ok := h.parseSubject(w, r.URL.Query().Get("subject"))
		if !ok {
			return
		}
		h.writeJSON(w, h.conversation(subject).Messages())
		return
	}
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request tutorRequest
	if !h.decodeJSON(w, r, maxTutorBody, &request) {
		return
	}
	subject, ok := h.parseSubject(w, request.Subject)
	if !ok {
		return
	}

	switch parts[0] {
	case "question":
		h.writeJSON(w, map[string]string{"text": h.app.Tutor.PracticeQuestion(r.Context(), string(subject))})
	case "tip":
		h.writeJSON(w, map[string]string{"text": h.app.Tutor.StudyTip(r.Context(), string(subject))})
	case "chat":
		conv := h.conversation(subject)
		reply, delivered, err := h.app.Tutor.Ask(r.Context(), conv, request.Message, h.app.Sessions.Generation)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		h.writeJSON(w, map[string]any{
			"reply":     reply,
			"delivered": delivered,
			"messages":  conv.Messages(),
		})
	default:
		h.writeError(w, "Not found", http.StatusNotFound)
	}
}

func (h *Handler) parseSubject(w http.ResponseWriter, s string) (models.SubjectID, bool) {
	subject, ok := models.ParseSubject(s)
	if !ok {
		h.writeError(w, fmt.Sprintf("Unknown subject %q", s), http.StatusBadRequest)
	}
	return subject, ok
}

// conversation returns the chat for subject in the current session,
// starting over when either changed.
func (h *Handler) conversation(subject models.SubjectID) *tutor.Conversation {
	generation := h.app.Sessions.Generation()

	h.chatMu.Lock()
	defer h.chatMu.Unlock()
	switch {
	case h.chat == nil:
		h.chat = tutor.NewConversation(subject, generation)
	case h.chat.Subject() != subject || h.chat.Generation() != generation:
		h.chat.Reset(subject, generation)
	}
	return h.chat
}
