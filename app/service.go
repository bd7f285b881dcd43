package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	fleetapi "github.com/kilianp07/glpdispatch/api/fleet"
	"github.com/kilianp07/glpdispatch/api/solutions"
	"github.com/kilianp07/glpdispatch/config"
	"github.com/kilianp07/glpdispatch/core/events"
	coremetrics "github.com/kilianp07/glpdispatch/core/metrics"
	"github.com/kilianp07/glpdispatch/core/model"
	coremon "github.com/kilianp07/glpdispatch/core/monitoring"
	"github.com/kilianp07/glpdispatch/core/optimizer"
	"github.com/kilianp07/glpdispatch/core/scenario"
	"github.com/kilianp07/glpdispatch/core/simulation"
	"github.com/kilianp07/glpdispatch/core/solutionlog"
	"github.com/kilianp07/glpdispatch/infra/logger"
	"github.com/kilianp07/glpdispatch/infra/metrics"
	"github.com/kilianp07/glpdispatch/infra/monitoring"
	"github.com/kilianp07/glpdispatch/infra/mqtt"
	"github.com/kilianp07/glpdispatch/internal/eventbus"
)

// Service wires the simulation clock to its transports and sinks.
type Service struct {
	Clock    *simulation.Clock
	Scenario *scenario.Scenario

	cfg       *config.Config
	bus       *eventbus.Bus[events.Event]
	store     solutionlog.Store
	publisher *mqtt.PahoPublisher
	log       logger.Logger
}

// New creates a Service from the configuration. The scenario file defines
// the fleet, the map and the start instant.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sc, err := scenario.Load(cfg.Scenario.Path)
	if err != nil {
		return nil, err
	}
	reg, err := sc.Registry()
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	grid := sc.GridMap()
	simCfg := cfg.Simulation
	simCfg.GridWidth, simCfg.GridHeight = sc.Grid.Width, sc.Grid.Height

	ev := optimizer.NewEvaluator(grid, simCfg.EvaluatorConfig)
	opt := optimizer.New(ev, cfg.Optimizer, logger.New("optimizer"))
	clock, err := simulation.NewClock(simCfg, reg, grid, opt, sc.Start, logger.New("clock"))
	if err != nil {
		return nil, fmt.Errorf("simulation clock: %w", err)
	}
	sc.Install(clock)

	svc := &Service{Clock: clock, Scenario: sc, cfg: cfg, log: logg}
	if err := svc.wire(); err != nil {
		_ = svc.Close()
		return nil, err
	}
	logg.Infof("scenario %s loaded: %d trucks, %d depots, %d orders, start %s",
		cfg.Scenario.Path, reg.Trucks.Len(), len(sc.Depots), len(sc.Orders), sc.Start.Format(time.RFC3339))
	return svc, nil
}

func (s *Service) wire() error {
	sink, err := coremetrics.NewMetricsSink(s.cfg.Metrics.Sinks)
	if err != nil {
		return fmt.Errorf("metrics sink: %w", err)
	}
	s.Clock.SetMetricsSink(sink)

	s.store, err = solutionlog.New(s.cfg.Logging.Packets)
	if err != nil {
		return fmt.Errorf("packet log: %w", err)
	}
	if s.store != nil {
		s.Clock.SetPacketStore(s.store)
	}

	s.bus = eventbus.New()
	s.Clock.SetEventBus(s.bus)

	if s.cfg.MQTT.Enabled() {
		s.publisher, err = mqtt.NewPahoPublisher(s.cfg.MQTT)
		if err != nil {
			return fmt.Errorf("mqtt publisher: %w", err)
		}
		s.Clock.SetPublisher(s.publisher)
		s.publisher.OnBreakdown(s.onBreakdownReport)
	}
	return nil
}

// onBreakdownReport runs the recalculation off the MQTT callback goroutine.
func (s *Service) onBreakdownReport(r mqtt.BreakdownReport) {
	coremon.Go(func() {
		err := s.Clock.ReportBreakdown(context.Background(), r.TruckCode, model.IncidentType(r.Incident), r.At)
		if err != nil {
			s.log.Warnf("breakdown report for %s rejected: %v", r.TruckCode, err)
		}
	})
}

// Run serves the API and the metrics endpoint and keeps the lookahead
// queue filled until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, logger.New("events"))
	if s.promEnabled() {
		coremon.Go(func() {
			if err := metrics.StartPromServer(ctx, ":"+s.cfg.Metrics.PrometheusPort, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		})
	}
	if n := s.cfg.Simulation.LookaheadPackets; n > 0 {
		s.startPrefetch(ctx, n)
	}
	if s.cfg.API.Address == "" {
		<-ctx.Done()
		return nil
	}
	srv := &http.Server{
		Addr:              s.cfg.API.Address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warnf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("solution API listening on %s", s.cfg.API.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/fleet/", solutions.WithToken(s.cfg.API.Token, fleetapi.NewStatusHandler(s.Clock)))
	mux.Handle("/", solutions.NewHandler(s.Clock, s.store, s.cfg.API.Token, logger.New("api")))
	return mux
}

func (s *Service) promEnabled() bool {
	for _, m := range s.cfg.Metrics.Sinks {
		if m.Type == "prometheus" {
			return true
		}
	}
	return false
}

// startPrefetch plans n packets ahead and tops the queue up after every
// consumed packet.
func (s *Service) startPrefetch(ctx context.Context, n int) {
	sub := s.bus.Subscribe()
	coremon.Go(func() {
		defer s.bus.Unsubscribe(sub)
		fill := func() {
			if err := s.Clock.Prefetch(ctx, n); err != nil && ctx.Err() == nil {
				s.log.Warnf("prefetch: %v", err)
			}
		}
		fill()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if _, isPacket := ev.(events.PacketEvent); isPacket {
					fill()
				}
			}
		}
	})
}

// Simulate consumes n intervals and returns their packets. Intervals that
// could not be planned yield their EMERGENCY packet and are logged.
func (s *Service) Simulate(ctx context.Context, n int) ([]simulation.SolutionPacket, error) {
	out := make([]simulation.SolutionPacket, 0, n)
	for i := 0; i < n; i++ {
		p, err := s.Clock.AdvanceInterval(ctx, time.Time{})
		if err != nil {
			if !errors.Is(err, optimizer.ErrOptimizationFailed) {
				return out, err
			}
			s.log.Warnf("interval %d: %v", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.Clock != nil {
		s.Clock.Close()
	}
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("packet log: %w", err))
		}
	}
	if s.bus != nil {
		if n := s.bus.Dropped(); n > 0 {
			s.log.Warnf("event bus dropped %d deliveries to slow subscribers", n)
		}
		s.bus.Close()
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
