package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/ember/internal/journal"
	"github.com/agenthands/ember/internal/reflection"
	"github.com/agenthands/ember/internal/store"
)

type analysisOptions struct {
	DayLimit int `json:"dayLimit"`
}

type processRequest struct {
	Conversations   json.RawMessage  `json:"conversations"`
	AnalysisOptions *analysisOptions `json:"analysisOptions"`
}

// ProcessConversations is the pipeline entry point. Malformed request shape
// is a 400, a missing credential a 500; per-date failures inside the pipeline
// never reach here (they degrade to gaps in the 200 response).
func (s *Server) ProcessConversations(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. Expected conversations array."})
		return
	}

	trimmed := bytes.TrimSpace(req.Conversations)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. Expected conversations array."})
		return
	}

	var conversations []journal.ConversationData
	if err := json.Unmarshal(trimmed, &conversations); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. Expected conversations array."})
		return
	}

	if s.Pipeline == nil {
		log.Printf("Process request rejected: no LLM credential configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "LLM credential is not configured"})
		return
	}

	opts := journal.Options{}
	if req.AnalysisOptions != nil {
		opts.DayLimit = req.AnalysisOptions.DayLimit
	}

	result, err := s.Pipeline.Process(c.Request.Context(), conversations, opts)
	if err != nil {
		log.Printf("Error processing conversations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process conversations"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ReflectionTurn adapts one reflection kind to an HTTP handler. Any failure,
// including malformed AI output, is a 500.
func (s *Server) ReflectionTurn(kind reflection.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reflection.TurnRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		if s.Reflections == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "LLM credential is not configured"})
			return
		}

		response, err := s.Reflections.Turn(c.Request.Context(), kind, req)
		if err != nil {
			log.Printf("Error in %s reflection: %v", kind, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate reflection response"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"response": response})
	}
}

// ClusterThemes forwards a clustering payload to the external job service and
// waits on its push channel for the result.
func (s *Server) ClusterThemes(c *gin.Context) {
	if s.Cluster == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Clustering service is not configured"})
		return
	}

	var payload json.RawMessage
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	timeout := time.Duration(s.Config.Cluster.WaitTimeoutMins) * time.Minute
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	jobID, err := s.Cluster.Submit(ctx, "/cluster/themes", payload)
	if err != nil {
		log.Printf("Failed to submit clustering job: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit clustering job"})
		return
	}

	result, err := s.Cluster.Wait(ctx, jobID)
	if err != nil {
		log.Printf("Clustering job %s failed: %v", jobID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Clustering job failed"})
		return
	}

	c.Data(http.StatusOK, "application/json", result)
}

func (s *Server) SaveSnapshot(c *gin.Context) {
	var payload json.RawMessage
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.SaveSnapshot(c.Request.Context(), payload); err != nil {
		log.Printf("Failed to save snapshot: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save snapshot"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) GetSnapshot(c *gin.Context) {
	data, err := s.Store.GetSnapshot(c.Request.Context())
	if err != nil {
		log.Printf("Failed to read snapshot: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read snapshot"})
		return
	}
	if data == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No snapshot stored"})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) ClearSnapshot(c *gin.Context) {
	if err := s.Store.ClearSnapshot(c.Request.Context()); err != nil {
		log.Printf("Failed to clear snapshot: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear snapshot"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) SaveReflectionSession(c *gin.Context) {
	var session store.Session
	if err := c.ShouldBindJSON(&session); err != nil || session.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Store.SaveSession(c.Request.Context(), session); err != nil {
		log.Printf("Failed to save session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) GetReflectionSession(c *gin.Context) {
	session, err := s.Store.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Printf("Failed to read session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read session"})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// ListReflectionSessions looks sessions up by ?date= or ?type=; exactly one
// filter is required.
func (s *Server) ListReflectionSessions(c *gin.Context) {
	date := c.Query("date")
	typ := c.Query("type")

	var (
		sessions []store.Session
		err      error
	)
	switch {
	case date != "" && typ == "":
		sessions, err = s.Store.SessionsByDate(c.Request.Context(), date)
	case typ != "" && date == "":
		sessions, err = s.Store.SessionsByType(c.Request.Context(), typ)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide exactly one of date or type"})
		return
	}
	if err != nil {
		log.Printf("Failed to list sessions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}
