package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"zonemonitor/internal/camera"
	"zonemonitor/internal/config"
	"zonemonitor/internal/database"
	"zonemonitor/internal/detect"
	"zonemonitor/internal/handlers"
	"zonemonitor/internal/logger"
	"zonemonitor/internal/metrics"
	"zonemonitor/internal/monitor"
	"zonemonitor/internal/relay"
	"zonemonitor/internal/routes"
	"zonemonitor/internal/services/websocket"
	"zonemonitor/internal/zone"
)

// App owns every long-lived component and their lifecycle.
type App struct {
	cfg     *config.Config
	store   *config.Store
	log     *logger.Logger
	metrics *metrics.Metrics

	db        *database.Database
	registry  *camera.Registry
	evaluator *zone.Evaluator
	adapter   *detect.Adapter
	dnn       *detect.DNNDetector
	relay     *relay.Controller
	hub       *websocket.HubService
	monitor   *monitor.Monitor

	server     *http.Server
	stopStatus chan struct{}
}

// New loads configuration and wires all components.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.LogDirectory)

	store, err := config.NewStore(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration store: %w", err)
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open event database: %w", err)
	}

	m := metrics.New()
	doc := store.Document()

	dnn := detect.NewDNNDetector(doc.Detector.ModelPath, doc.Detector.ConfigPath, log)
	standIn := &detect.StandIn{Synthetic: doc.Detector.Synthetic}
	adapter := detect.NewAdapter(dnn, standIn, doc.Detector.Confidence, log, m)

	registry := camera.NewRegistry(camera.OpenRTSP, camera.DefaultBackoff, log, m)
	registry.Reconcile(doc.Cameras)

	evaluator := zone.NewEvaluator(log)
	evaluator.Reconcile(doc.Zones, registry.IDs())

	var output relay.Output
	if relay.SysfsAvailable() {
		output = relay.NewSysfsOutput()
	} else {
		output = relay.NewSimOutput(log)
	}
	relayCtl := relay.NewController(output, doc.GPIO, log, m)

	hub := websocket.NewHubService(log)

	mon := monitor.New(registry, adapter, evaluator, relayCtl, db, cfg.CycleInterval, log, m)

	return &App{
		cfg:        cfg,
		store:      store,
		log:        log,
		metrics:    m,
		db:         db,
		registry:   registry,
		evaluator:  evaluator,
		adapter:    adapter,
		dnn:        dnn,
		relay:      relayCtl,
		hub:        hub,
		monitor:    mon,
		stopStatus: make(chan struct{}),
	}, nil
}

// Run starts the background services and serves the API until the
// server is shut down.
func (a *App) Run() error {
	go a.hub.Run()
	a.monitor.Start()
	go a.emitStatus()

	api := &handlers.API{
		Store:     a.store,
		Registry:  a.registry,
		Evaluator: a.evaluator,
		Relay:     a.relay,
		Events:    a.db,
		Hub:       a.hub,
		Logger:    a.log,
	}
	router := routes.SetupRoutes(api, a.metrics, a.cfg.LogDirectory)

	fmt.Printf("Zone Monitor\n")
	fmt.Printf("URL: http://localhost:%d\n", a.cfg.Port)
	fmt.Printf("Config: %s\n", a.cfg.ConfigPath)
	fmt.Printf("Events: %s\n", a.cfg.DatabasePath)

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Port),
		Handler: router,
	}
	return a.server.ListenAndServe()
}

// emitStatus pushes a status snapshot to websocket observers on a fixed
// cadence.
func (a *App) emitStatus() {
	ticker := time.NewTicker(a.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopStatus:
			return
		case <-ticker.C:
			if a.hub.GetClientCount() == 0 {
				continue
			}

			payload := handlers.BuildStatus(a.registry, a.evaluator, a.relay)
			data, err := json.Marshal(payload)
			if err != nil {
				a.log.Error("Failed to encode status update: %v", err)
				continue
			}
			a.hub.Broadcast(data)
		}
	}
}

// Shutdown stops the server and all background components, quiescing
// the relay output last.
func (a *App) Shutdown() {
	a.log.Info("Shutdown signal received. Cleaning up...")

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.log.Error("HTTP server shutdown: %v", err)
		}
	}

	close(a.stopStatus)
	a.monitor.Stop()
	a.registry.StopAll()
	a.relay.Quiesce()
	a.dnn.Close()

	if err := a.db.Close(); err != nil {
		a.log.Error("Failed to close event database: %v", err)
	}
}
