package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/history"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/monitor"
	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/store"
)

//go:embed static/*
var embeddedStatic embed.FS

const (
	defaultSampleInterval = time.Second
	defaultPushInterval   = time.Second
	defaultHistoryLimit   = history.DefaultDepth
	defaultAPExpiry       = 30 * time.Minute
)

// Engine is the slice of the monitor coordinator the server reads and drives.
type Engine interface {
	Snapshot() models.EngineSnapshot
	UseDefaultGateway() error
	UseCustomHost(host string) error
}

// Options configures the HTTP server. Engine, Store and History are required;
// zero durations and limits fall back to defaults.
type Options struct {
	Addr           string
	Engine         Engine
	Store          *store.APStore
	History        *history.Ring
	Metrics        http.Handler
	SampleInterval time.Duration
	PushInterval   time.Duration
	HistoryLimit   int
	APExpiry       time.Duration
	Log            *slog.Logger
}

// Server wraps HTTP serving of the status API, the websocket feed and static
// assets, and runs the sampler that feeds the probe history ring.
type Server struct {
	httpServer *http.Server
	engine     Engine
	aps        *store.APStore
	ring       *history.Ring
	metrics    http.Handler
	staticFS   fs.FS
	log        *slog.Logger

	sampleInterval time.Duration
	pushInterval   time.Duration
	historyLimit   int
	apExpiry       time.Duration

	recent *ttlcache.Cache[string, apObservation]

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// apObservation is a live sighting of an access point, retained only while it
// stays fresh. Persistent facts (names, seen counts) live in the AP store.
type apObservation struct {
	BSSID         string    `json:"bssid"`
	SSID          string    `json:"ssid,omitempty"`
	Band          string    `json:"band,omitempty"`
	SignalPercent int       `json:"signal_percent"`
	LastSeen      time.Time `json:"last_seen"`
}

// New creates a configured HTTP server and starts its background sampler.
// Call Shutdown to release it even when Run is never invoked.
func New(opts Options) *Server {
	staticFS, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		panic("static assets missing: " + err.Error())
	}

	if opts.SampleInterval <= 0 {
		opts.SampleInterval = defaultSampleInterval
	}
	if opts.PushInterval <= 0 {
		opts.PushInterval = defaultPushInterval
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.APExpiry <= 0 {
		opts.APExpiry = defaultAPExpiry
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	recent := ttlcache.New[string, apObservation](
		ttlcache.WithTTL[string, apObservation](opts.APExpiry),
	)
	go recent.Start()

	mux := http.NewServeMux()
	s := &Server{
		httpServer:     &http.Server{Addr: opts.Addr, Handler: mux},
		engine:         opts.Engine,
		aps:            opts.Store,
		ring:           opts.History,
		metrics:        opts.Metrics,
		staticFS:       staticFS,
		log:            opts.Log,
		sampleInterval: opts.SampleInterval,
		pushInterval:   opts.PushInterval,
		historyLimit:   opts.HistoryLimit,
		apExpiry:       opts.APExpiry,
		recent:         recent,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
	s.registerRoutes(mux)
	go s.sample()
	return s
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the sampler and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
	s.recent.Stop()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the route mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) sample() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.record(s.engine.Snapshot())
		case <-s.stopCh:
			return
		}
	}
}

// record appends the snapshot's probe outcome to the history ring and renews
// the live AP observation. Snapshots without an outcome yet are skipped so the
// startup idle phase never pollutes uptime numbers.
func (s *Server) record(snap models.EngineSnapshot) {
	if snap.HasOutcome {
		s.ring.Add(models.ProbeSample{
			At:        snap.GeneratedAt,
			Success:   snap.LastOutcome.Success,
			LatencyMs: snap.LastOutcome.LatencyMs,
			Code:      string(snap.LastOutcome.Kind),
		})
	}
	if bssid := snap.Wireless.BSSID; bssid != "" {
		s.recent.Set(bssid, apObservation{
			BSSID:         bssid,
			SSID:          snap.Wireless.SSID,
			Band:          snap.Wireless.Band,
			SignalPercent: snap.Wireless.SignalPercent,
			LastSeen:      snap.GeneratedAt,
		}, s.apExpiry)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	fileServer := http.FileServer(http.FS(s.staticFS))

	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		data, err := fs.ReadFile(s.staticFS, "index.html")
		if err != nil {
			http.Error(w, "index missing", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(data)
	}))
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.Handle("/favicon.ico", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		icon, err := fs.ReadFile(s.staticFS, "favicon.ico")
		if err != nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "image/x-icon")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(icon)
	}))
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/uptime", s.handleUptime)
	mux.HandleFunc("/api/timeline", s.handleTimeline)
	mux.HandleFunc("/api/target", s.handleTarget)
	mux.HandleFunc("/api/aps", s.handleAPs)
	mux.HandleFunc("/api/aps/name", s.handleAPName)
	mux.HandleFunc("/api/feed", s.handleFeed)
	mux.HandleFunc("/ws", s.handleFeedWS)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, s.historyLimit)
	writeJSON(w, http.StatusOK, s.ring.Recent(limit))
}

func (s *Server) handleUptime(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, s.historyLimit)
	writeJSON(w, http.StatusOK, history.Summarize(s.ring.Recent(limit)))
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	minutes := parseMinutes(r, 5)
	end := time.Now().UTC()
	start := end.Add(-time.Duration(minutes) * time.Minute)
	points := history.BuildTimeline(s.ring.Recent(0), start, end, history.DefaultTimelinePoints)
	writeJSON(w, http.StatusOK, points)
}

type targetRequest struct {
	Kind string `json:"kind"`
	Host string `json:"host,omitempty"`
}

func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.engine.Snapshot().Target)
	case http.MethodPost:
		var req targetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		var err error
		switch models.TargetKind(strings.ToLower(strings.TrimSpace(req.Kind))) {
		case models.TargetGateway:
			err = s.engine.UseDefaultGateway()
		case models.TargetCustom:
			err = s.engine.UseCustomHost(req.Host)
		default:
			http.Error(w, "unknown target kind", http.StatusBadRequest)
			return
		}
		if err != nil {
			writeTargetError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.engine.Snapshot().Target)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeTargetError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, monitor.ErrEmptyHost):
		status = http.StatusBadRequest
	case errors.Is(err, monitor.ErrStopped):
		status = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), status)
}

// apView merges persistent AP knowledge with live observations for the API.
type apView struct {
	BSSID         string    `json:"bssid"`
	Name          string    `json:"name,omitempty"`
	SSID          string    `json:"ssid,omitempty"`
	Band          string    `json:"band,omitempty"`
	SignalPercent int       `json:"signal_percent,omitempty"`
	Current       bool      `json:"current"`
	Recent        bool      `json:"recent"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	SeenCount     int       `json:"seen_count,omitempty"`
}

func (s *Server) handleAPs(w http.ResponseWriter, _ *http.Request) {
	snap := s.engine.Snapshot()
	names := s.aps.Names()
	seen := s.aps.SeenRecords()

	views := make(map[string]*apView, len(seen))
	for bssid, rec := range seen {
		views[bssid] = &apView{
			BSSID:     bssid,
			Name:      names[bssid],
			FirstSeen: rec.FirstSeen,
			LastSeen:  rec.LastSeen,
			SeenCount: rec.Count,
		}
	}
	for bssid, item := range s.recent.Items() {
		view := views[bssid]
		if view == nil {
			view = &apView{BSSID: bssid, Name: names[bssid]}
			views[bssid] = view
		}
		obs := item.Value()
		view.SSID = obs.SSID
		view.Band = obs.Band
		view.SignalPercent = obs.SignalPercent
		view.Recent = true
		if obs.LastSeen.After(view.LastSeen) {
			view.LastSeen = obs.LastSeen
		}
	}
	if current := snap.Wireless.BSSID; current != "" {
		if view := views[current]; view != nil {
			view.Current = true
			view.SignalPercent = snap.Wireless.SignalPercent
		}
	}

	list := make([]apView, 0, len(views))
	for _, view := range views {
		list = append(list, *view)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Current != list[j].Current {
			return list[i].Current
		}
		if !list[i].LastSeen.Equal(list[j].LastSeen) {
			return list[i].LastSeen.After(list[j].LastSeen)
		}
		return list[i].BSSID < list[j].BSSID
	})
	writeJSON(w, http.StatusOK, list)
}

type apNameRequest struct {
	BSSID string `json:"bssid"`
	Name  string `json:"name"`
}

func (s *Server) handleAPName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req apNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	bssid := strings.ToLower(strings.TrimSpace(req.BSSID))
	if bssid == "" {
		http.Error(w, "bssid is required", http.StatusBadRequest)
		return
	}
	if err := s.aps.SetDisplayName(bssid, req.Name); err != nil {
		s.log.Error("persisting ap name failed", "bssid", bssid, "error", err)
		http.Error(w, "saving name failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"bssid": bssid,
		"name":  s.aps.DisplayName(bssid),
	})
}

func parseLimit(r *http.Request, fallback int) int {
	if fallback <= 0 {
		return fallback
	}
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > fallback {
		return fallback
	}
	return value
}

func parseMinutes(r *http.Request, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("minutes"))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > 60 {
		return 60
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
