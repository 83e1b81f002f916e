package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/history"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
)

const (
	feedWriteTimeout = 5 * time.Second
	feedWindow       = 5 * time.Minute
)

var feedUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

// feedPayload is one frame of the live feed: the engine snapshot plus the
// recent-history digest the status page renders.
type feedPayload struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Engine      models.EngineSnapshot  `json:"engine"`
	Summary     history.Summary        `json:"summary"`
	Timeline    []models.TimelinePoint `json:"timeline"`
}

func (s *Server) handleFeed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.buildFeedPayload())
}

func (s *Server) handleFeedWS(w http.ResponseWriter, r *http.Request) {
	conn, err := feedUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveFeedConnection(conn)
}

func (s *Server) serveFeedConnection(conn *websocket.Conn) {
	defer conn.Close()

	if err := writeFeedPayload(conn, s.buildFeedPayload()); err != nil {
		return
	}

	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			if err := writeFeedPayload(conn, s.buildFeedPayload()); err != nil {
				return
			}
		case <-done:
			return
		case <-s.stopCh:
			return
		}
	}
}

func writeFeedPayload(conn *websocket.Conn, payload feedPayload) error {
	_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
	return conn.WriteJSON(payload)
}

func (s *Server) buildFeedPayload() feedPayload {
	now := time.Now().UTC()
	samples := s.ring.Recent(0)
	return feedPayload{
		GeneratedAt: now,
		Engine:      s.engine.Snapshot(),
		Summary:     history.Summarize(samples),
		Timeline:    history.BuildTimeline(samples, now.Add(-feedWindow), now, history.DefaultTimelinePoints),
	}
}
