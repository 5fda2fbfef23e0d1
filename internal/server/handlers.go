// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jeranaias/aspire/internal/model"
)

// ============================================================================
// REQUEST TYPES
// ============================================================================

// ChatRequest is the body of POST /ai/chatbot.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// SaveStrategyRequest is the body of POST /strategies.
type SaveStrategyRequest struct {
	Title        string `json:"title"`
	BusinessName string `json:"business_name"`
	Industry     string `json:"industry"`
	Content      string `json:"content"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Storage string `json:"storage"`
}

// decodeBody reads a size-limited JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errTypeInvalidRequest,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, errTypeInvalidRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

func unavailable(w http.ResponseWriter, what string) {
	writeError(w, http.StatusServiceUnavailable, errTypeInternal, what+" is not configured")
}

// ============================================================================
// AI HANDLERS
// ============================================================================

// handleGenerateStrategy handles POST /ai/generate-strategy.
func (s *Server) handleGenerateStrategy(w http.ResponseWriter, r *http.Request) {
	if s.strategies == nil {
		unavailable(w, "strategy generation")
		return
	}

	var req model.StrategyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.strategies.Generate(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if result.Degraded {
		w.Header().Set(DegradedHeader, "true")
	}
	writeJSON(w, http.StatusOK, result)
}

// handleChatbot handles POST /ai/chatbot.
func (s *Server) handleChatbot(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		unavailable(w, "chat")
		return
	}

	var req ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reply, err := s.chat.Chat(r.Context(), OwnerFromContext(r.Context()), req.Message, req.ConversationID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// handleListConversations handles GET /ai/conversations.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		unavailable(w, "chat")
		return
	}

	summaries, err := s.chat.Conversations(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// handleConversationMessages handles GET /ai/conversations/{id}.
func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		unavailable(w, "chat")
		return
	}

	turns, err := s.chat.History(r.Context(), OwnerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

// ============================================================================
// SAVED STRATEGY HANDLERS
// ============================================================================

// handleSaveStrategy handles POST /strategies.
func (s *Server) handleSaveStrategy(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		unavailable(w, "strategy library")
		return
	}

	var req SaveStrategyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	owner := OwnerFromContext(r.Context())
	saved, err := s.library.SaveStrategy(r.Context(), model.SavedStrategy{
		OwnerID:      owner,
		Title:        req.Title,
		BusinessName: req.BusinessName,
		Industry:     req.Industry,
		Content:      req.Content,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	log.Printf("STRATEGY_SAVED | owner=%s id=%s", owner, saved.ID)
	writeJSON(w, http.StatusCreated, saved)
}

// handleListStrategies handles GET /strategies.
func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		unavailable(w, "strategy library")
		return
	}

	list, err := s.library.ListStrategies(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleGetStrategy handles GET /strategies/{id}.
func (s *Server) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		unavailable(w, "strategy library")
		return
	}

	st, err := s.library.GetStrategy(r.Context(), OwnerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleDeleteStrategy handles DELETE /strategies/{id}.
func (s *Server) handleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		unavailable(w, "strategy library")
		return
	}

	owner := OwnerFromContext(r.Context())
	id := r.PathValue("id")
	if err := s.library.DeleteStrategy(r.Context(), owner, id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	log.Printf("STRATEGY_DELETED | owner=%s id=%s", owner, id)
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	pinger := s.health
	s.mu.RUnlock()

	health := HealthResponse{Status: "ok", Version: Version, Storage: "not_configured"}
	if pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			health.Status = "degraded"
			health.Storage = "unavailable"
		} else {
			health.Storage = "ok"
		}
	}

	writeJSON(w, http.StatusOK, health)
}
