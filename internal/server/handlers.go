package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/kbchat-go/internal/chat"
	"github.com/54b3r/kbchat-go/internal/logging"
	"github.com/54b3r/kbchat-go/internal/rag"
)

// handleChat handles POST /api/chat. Completion failures never surface here:
// the assistant always returns text, so every well-formed request gets 200.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	in := chatInput{Query: strings.TrimSpace(req.Query)}
	if in.Query == "" {
		in.Query = strings.TrimSpace(req.Message)
	}
	switch {
	case req.Metadata != nil:
		in.Metadata = *req.Metadata
	case req.FormData != nil:
		in.Metadata = *req.FormData
	}
	if !s.validOrReject(w, r, in) {
		return
	}

	resp := s.assistant.Answer(r.Context(), chat.Request{
		Query:     in.Query,
		Metadata:  toMetadata(in.Metadata),
		RequestID: requestIDFromContext(r.Context()),
	})
	s.metrics.observeChat(resp)

	writeJSON(r.Context(), w, http.StatusOK, chatResponse{
		Text:      resp.Text,
		Succeeded: resp.Succeeded,
		SourceTag: string(resp.Source),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleDraft handles POST /api/draft.
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var meta metadataPayload
	switch {
	case req.Metadata != nil:
		meta = *req.Metadata
	case req.FormData != nil:
		meta = *req.FormData
	}
	if !s.validOrReject(w, r, meta) {
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, draftResponse{Draft: s.assistant.Draft(toMetadata(meta))})
}

// handleSearch handles POST /api/search. It exposes the raw ranking so
// operators can see why an entry was or was not offered to the model.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if !s.validOrReject(w, r, req) {
		return
	}

	results, err := s.assistant.Search(req.Query, req.TopK)
	if err != nil {
		logging.FromContext(r.Context()).Error("search failed", slog.Any("error", err))
		writeError(r.Context(), w, http.StatusInternalServerError, "search failed", nil)
		return
	}

	out := searchResponse{Results: make([]searchResult, len(results))}
	for i, res := range results {
		out.Results[i] = searchResult{
			ID:         res.ID,
			Category:   string(res.Category),
			Content:    res.Content,
			Similarity: res.Similarity,
		}
	}
	writeJSON(r.Context(), w, http.StatusOK, out)
}

// validOrReject validates v and writes a 400 with field errors on failure.
func (s *Server) validOrReject(w http.ResponseWriter, r *http.Request, v any) bool {
	err := validateStruct(v)
	if err == nil {
		return true
	}
	var verr *validationError
	if errors.As(err, &verr) {
		writeError(r.Context(), w, http.StatusBadRequest, "validation failed", verr.fields)
		return false
	}
	logging.FromContext(r.Context()).Error("validator error", slog.Any("error", err))
	writeError(r.Context(), w, http.StatusInternalServerError, "internal error", nil)
	return false
}

// toMetadata converts a validated payload into prompt metadata.
func toMetadata(p metadataPayload) rag.Metadata {
	return rag.Metadata{
		Name:    strings.TrimSpace(p.Name),
		Company: strings.TrimSpace(p.Company),
		Email:   strings.TrimSpace(p.Email),
		Phone:   strings.TrimSpace(p.Phone),
		Service: strings.TrimSpace(p.Service),
		Message: strings.TrimSpace(p.Message),
	}
}

// writeJSON encodes v with the given status.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(ctx).Error("response encode error", slog.Any("error", err))
	}
}

// writeError writes an errorResponse.
func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string, fields map[string]string) {
	writeJSON(ctx, w, status, errorResponse{Error: msg, Fields: fields})
}
