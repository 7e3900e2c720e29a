// Package httpapi is the small operational HTTP surface a terminal UI
// shell (out of scope) would poll: pattern status, a progress long-poll,
// and a cancel endpoint for an in-flight batch. Grounded on the
// teacher's AdminHandler + middleware chain, generalized from
// OpenAI-batch-job status to pattern-batch status and upgraded to
// zerolog.
package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"triage/internal/executor"
	"triage/internal/orchestrator"
)

// Server exposes the Orchestrator's state over HTTP.
type Server struct {
	orch *orchestrator.Orchestrator
	log  zerolog.Logger

	cancelsMu sync.Mutex
	cancels   map[string]*executor.CancelSignal
}

// New constructs a Server bound to one Orchestrator instance.
func New(orch *orchestrator.Orchestrator, log zerolog.Logger) *Server {
	return &Server{orch: orch, log: log, cancels: make(map[string]*executor.CancelSignal)}
}

// RegisterCancelSignal associates a CancelSignal with an in-flight
// pattern so POST /batches/{pattern_id}/cancel can reach it. The caller
// (cmd/triage's batch loop) must Unregister once the batch completes.
func (s *Server) RegisterCancelSignal(patternID string, cs *executor.CancelSignal) {
	s.cancelsMu.Lock()
	defer s.cancelsMu.Unlock()
	s.cancels[patternID] = cs
}

// UnregisterCancelSignal removes a pattern's CancelSignal once its batch
// has finished.
func (s *Server) UnregisterCancelSignal(patternID string) {
	s.cancelsMu.Lock()
	defer s.cancelsMu.Unlock()
	delete(s.cancels, patternID)
}

// Router builds the Gin engine with the request-id/recovery/logging
// middleware chain and registers the operational routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestIDMiddleware(), recoveryMiddleware(s.log), loggingMiddleware(s.log))

	r.GET("/status", s.handleStatus)
	r.GET("/events", s.handleEvents)
	r.POST("/batches/:pattern_id/cancel", s.handleCancel)

	return r
}

// handleStatus returns the current pattern list and statuses.
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"patterns": s.orch.Patterns()})
}

// handleEvents long-polls the Orchestrator's ProgressEvent channel for
// up to 25s, returning whatever batch of events arrived (possibly
// empty) so the client can poll again.
func (s *Server) handleEvents(c *gin.Context) {
	const longPollWindow = 25 * time.Second
	timeout := time.NewTimer(longPollWindow)
	defer timeout.Stop()

	var events []orchestrator.ProgressEvent
	for {
		select {
		case ev, ok := <-s.orch.Events():
			if !ok {
				c.JSON(http.StatusOK, gin.H{"events": events})
				return
			}
			events = append(events, ev)
			if len(events) >= 50 {
				c.JSON(http.StatusOK, gin.H{"events": events})
				return
			}
		case <-timeout.C:
			c.JSON(http.StatusOK, gin.H{"events": events})
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// handleCancel signals the executor's cancellation flag for an
// in-flight batch, if one is registered for this pattern.
func (s *Server) handleCancel(c *gin.Context) {
	patternID := c.Param("pattern_id")

	s.cancelsMu.Lock()
	cs, ok := s.cancels[patternID]
	s.cancelsMu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active batch for this pattern"})
		return
	}
	cs.Cancel()
	c.JSON(http.StatusAccepted, gin.H{"status": "cancel requested"})
}
