package demoserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"osreport/internal/progress"
)

func (s *Server) handleRefresh(c *gin.Context) {
	sessionID := "session_" + uuid.NewString()
	ch := make(chan progress.Event, sessionBuffer(s.opts.Projects))

	s.mu.Lock()
	s.sessions[sessionID] = ch
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(ch)
		s.collect(sessionID, &progress.ChanEmitter{Ch: ch})
		time.AfterFunc(sessionTTL, func() { s.claimSession(sessionID) })
	}()

	s.logger.Info("refresh session started", "session_id", sessionID)
	c.JSON(http.StatusOK, gin.H{
		"message":    "Refresh started",
		"session_id": sessionID,
	})
}

// sessionBuffer sizes a session channel to hold every event of a refresh
// over n projects, so an unhurried client misses nothing.
func sessionBuffer(n int) int {
	return max(minSessionBuffer, 4+n*(2+2*len(streamKeys)))
}

// claimSession unregisters a session and returns its channel. Each session
// is streamed to at most one client.
func (s *Server) claimSession(id string) (chan progress.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.sessions[id]
	delete(s.sessions, id)
	return ch, ok
}

func (s *Server) handleProgress(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}
	ch, ok := s.claimSession(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	fmt.Fprint(c.Writer, ": connected\n\n")
	c.Writer.Flush()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("encode progress event", "session_id", sessionID, "error", err)
				return
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", data)
			c.Writer.Flush()
			if ev.Type.Terminal() {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

// collect walks projects × resource types, emitting lifecycle events, and
// installs a regenerated report when done.
func (s *Server) collect(sessionID string, em *progress.ChanEmitter) {
	em.Emit(progress.Event{Type: progress.EventStart, Message: "Initializing OpenStack client..."})
	em.Emit(progress.Event{Type: progress.EventProgress, Message: "Getting resources with progress updates..."})

	fresh := Generate(s.opts.Projects, s.now())
	total := len(fresh.Projects)

	for i, p := range fresh.Projects {
		em.Emit(progress.Event{
			Type:        progress.EventProjectStart,
			Project:     p.Name,
			CurrentStep: i + 1,
			TotalSteps:  total,
			Message:     "Processing project " + p.Name,
		})
		projectCount := 0
		for _, sk := range streamKeys {
			em.Emit(progress.Event{Type: progress.EventResourceStart, Project: p.Name, ResourceType: sk.key})
			if !s.pause() {
				em.Emit(progress.Event{Type: progress.EventError, Message: "server shutting down"})
				s.logger.Info("refresh session aborted", "session_id", sessionID)
				return
			}
			if s.opts.Fail != nil {
				if err := s.opts.Fail(p.Name, sk.key); err != nil {
					em.Emit(progress.Event{Type: progress.EventResourceError, Project: p.Name, ResourceType: sk.key, Message: err.Error()})
					continue
				}
			}
			n := countByProjectType(fresh, p.Name, sk.typ)
			projectCount += n
			em.Emit(progress.Event{Type: progress.EventResourceComplete, Project: p.Name, ResourceType: sk.key, Count: n})
		}
		em.Emit(progress.Event{Type: progress.EventProjectComplete, Project: p.Name, Count: projectCount})
	}

	summary := typeSummary(fresh.Resources)
	em.Emit(progress.Event{
		Type:    progress.EventSummary,
		Message: fmt.Sprintf("Collected %d resources", len(fresh.Resources)),
		Summary: summary,
	})

	s.mu.Lock()
	s.report = fresh
	s.mu.Unlock()

	em.Emit(progress.Event{Type: progress.EventComplete, Message: "Resources refreshed successfully", Summary: summary})
	s.logger.Info("refresh session complete", "session_id", sessionID, "resources", len(fresh.Resources))
}

// pause waits one pace interval. It reports false when the server stops.
func (s *Server) pause() bool {
	if s.opts.Pace <= 0 {
		select {
		case <-s.stop:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(s.opts.Pace)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.stop:
		return false
	}
}
