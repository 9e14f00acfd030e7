// Package server exposes the wall panels over HTTP: a JSON API, a
// websocket stream of state snapshots and an HTML setup page.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"wallpanel/pkg/wallpanel"
	"wallpanel/templates"
)

const maxBodySize = 64 << 10

// DeviceStore persists devices added through the setup page.
type DeviceStore interface {
	AddDevice(cfg wallpanel.DeviceConfig) (wallpanel.DeviceConfig, error)
}

type Server struct {
	registry *wallpanel.Registry
	router   *wallpanel.Router
	store    DeviceStore
	tmpl     *template.Template
	hub      *Hub
	logger   log.FieldLogger
}

func NewServer(registry *wallpanel.Registry, router *wallpanel.Router, store DeviceStore, tmpl *template.Template, hub *Hub, logger log.FieldLogger) *Server {
	return &Server{
		registry: registry,
		router:   router,
		store:    store,
		tmpl:     tmpl,
		hub:      hub,
		logger:   logger,
	}
}

// Handler builds the routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/devices", s.handleListDevices)
		api.Get("/devices/{id}", s.handleGetDevice)
		api.Post("/services/{action}", s.handleService)
		api.Get("/websocket", s.handleWebSocket)
	})

	r.Get("/setup", s.handleSetup)
	r.Post("/setup", s.handleSetup)

	return r
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	handleResponse(w, s.registry.Snapshots())
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, http.StatusNotFound, err.Error())
		return
	}
	handleResponse(w, d.Snapshot())
}

func (s *Server) handleService(w http.ResponseWriter, r *http.Request) {
	action, err := wallpanel.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		handleError(w, http.StatusNotFound, err.Error())
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		handleError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := wallpanel.ParseServiceData(body)
	if err != nil {
		handleError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.router.Route(r.Context(), data.Call(action))
	if err != nil {
		handleError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Infof("Service %s dispatched to %d device(s)", action, len(results))
	handleResponse(w, results)
}

type setupForm struct {
	Name string
	Host string
	Port int
}

// handleSetup lists the devices and adds a new one on POST. The new
// device is stored and registered without a restart.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderSetupForm(w, setupForm{}, "", "")

	case http.MethodPost:
		form, err := parseSetupForm(r)
		if err != nil {
			s.renderSetupForm(w, form, "", err.Error())
			return
		}

		id, err := s.addDevice(form)
		if err != nil {
			s.renderSetupForm(w, form, "", err.Error())
			return
		}
		s.renderSetupForm(w, setupForm{}, id, "")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) addDevice(form setupForm) (string, error) {
	cfg := wallpanel.DeviceConfig{Name: form.Name, Host: form.Host, Port: form.Port}
	if s.store != nil {
		stored, err := s.store.AddDevice(cfg)
		if err != nil {
			return "", err
		}
		cfg = stored
	}

	d, err := wallpanel.NewDevice(cfg, s.logger.WithField("device", cfg.Address()))
	if err != nil {
		return "", err
	}
	id := s.registry.Add(d)
	s.logger.Infof("Added device %s at %s", id, d.BaseURL())
	return id, nil
}

func (s *Server) renderSetupForm(w http.ResponseWriter, form setupForm, added string, errMsg string) {
	data := struct {
		Devices []wallpanel.Snapshot
		Form    setupForm
		Success bool
		Added   string
		Error   string
	}{s.registry.Snapshots(), form, added != "", added, errMsg}

	if errMsg != "" {
		w.WriteHeader(http.StatusBadRequest)
	}
	if err := s.tmpl.ExecuteTemplate(w, templates.SetupPage, data); err != nil {
		s.logger.Errorf("Failed to render setup page: %v", err)
	}
}

func parseSetupForm(r *http.Request) (setupForm, error) {
	if err := r.ParseForm(); err != nil {
		return setupForm{}, fmt.Errorf("error parsing form: %v", err)
	}

	form := setupForm{
		Name: r.PostForm.Get("name"),
		Host: r.PostForm.Get("host"),
	}
	if v := r.PostForm.Get("port"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return form, fmt.Errorf("invalid port %q", v)
		}
		form.Port = port
	}
	return form, nil
}

// RunServer serves until ctx is cancelled, then shuts down gracefully.
func RunServer(ctx context.Context, srv *http.Server, logger log.FieldLogger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
