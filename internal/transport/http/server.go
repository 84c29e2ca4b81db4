package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	credService "github.com/mentionwatch/mentionwatch/internal/modules/credentials/service"
	mentionService "github.com/mentionwatch/mentionwatch/internal/modules/mention/service"
	monitorService "github.com/mentionwatch/mentionwatch/internal/modules/monitor/service"
	nicknameService "github.com/mentionwatch/mentionwatch/internal/modules/nickname/service"
	"github.com/mentionwatch/mentionwatch/internal/shared/config"
	sloghttp "github.com/samber/slog-http"
)

// Server exposes health, status and the mention RSS feed over HTTP
type Server struct {
	cfg       *config.Config
	creds     *credService.Service
	nicknames *nicknameService.Service
	mentions  *mentionService.Service
	monitor   *monitorService.Service
	logger    *slog.Logger
}

// New creates a new HTTP server
func New(cfg *config.Config, creds *credService.Service, nicknames *nicknameService.Service, mentions *mentionService.Service, monitor *monitorService.Service) *Server {
	return &Server{
		cfg:       cfg,
		creds:     creds,
		nicknames: nicknames,
		mentions:  mentions,
		monitor:   monitor,
		logger:    slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Start starts the HTTP server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /rss", s.handleRSSFeed)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)

	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	s.logger.Info("HTTP server starting", "addr", addr)

	handler := sloghttp.Recovery(mux)
	handler = sloghttp.New(s.logger)(handler)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

func (s *Server) handleRSSFeed(w http.ResponseWriter, r *http.Request) {
	baseURL := fmt.Sprintf("%s://%s", getScheme(r), r.Host)

	feed, err := s.mentions.GenerateFeed(baseURL)
	if err != nil {
		s.logger.Error("Error generating mention feed", "error", err)
		http.Error(w, "Failed to generate feed", http.StatusInternalServerError)
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.logger.Error("Error converting feed to RSS", "error", err)
		http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300") // Cache for 5 minutes
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	nicknames, err := s.nicknames.List()
	if err != nil {
		s.logger.Error("Error listing nicknames", "error", err)
		http.Error(w, "Failed to read status", http.StatusInternalServerError)
		return
	}

	mentionCount, err := s.mentions.Count()
	if err != nil {
		mentionCount = 0
	}

	status := struct {
		Configured   bool `json:"configured"`
		Scanning     bool `json:"scanning"`
		Nicknames    int  `json:"nicknames"`
		MentionCount int  `json:"mention_count"`
	}{
		Configured:   s.creds.ScannerReady(),
		Scanning:     s.monitor.Running(),
		Nicknames:    len(nicknames),
		MentionCount: mentionCount,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Error encoding status", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
