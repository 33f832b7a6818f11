package fleurflow

import (
	"context"
	"fmt"
	"io"

	"github.com/viant/afs"
	"github.com/viant/fleurflow/extension"
	"github.com/viant/fleurflow/model/types"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/base"
	"github.com/viant/fleurflow/service/calculation/fleur"
	"github.com/viant/fleurflow/service/calculation/inpgen"
	"github.com/viant/fleurflow/service/dao"
	nodefs "github.com/viant/fleurflow/service/dao/node/fs"
	nodememory "github.com/viant/fleurflow/service/dao/node/memory"
	nodesqlite "github.com/viant/fleurflow/service/dao/node/sqlite"
	"github.com/viant/fleurflow/service/runner"
	"github.com/viant/fleurflow/service/scf"
	"github.com/viant/fleurflow/service/scheduler"
	"github.com/viant/fleurflow/telemetry"
	"github.com/viant/fleurflow/tracing"
)

// Version is reported with traces and the CLI
const Version = "0.6.0"

// Service wires the calculation services, the scheduler and the workchains
type Service struct {
	config            *Config
	fs                afs.Service
	runner            runner.Runner
	nodes             dao.Service[string, execution.Node]
	logger            *telemetry.Logger
	metrics           *telemetry.Metrics
	actions           *extension.Actions
	extensionServices []types.Service
	runtime           *Runtime
}

// New creates a service; the runtime has to be started before workchains are submitted
func New(ctx context.Context, options ...Option) (*Service, error) {
	s := &Service{}
	for _, option := range options {
		option(s)
	}
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init(ctx context.Context) error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if s.logger == nil {
		logger, err := telemetry.NewLogger(s.config.Logging)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		s.logger = logger
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewMetrics(s.config.Metrics)
	}
	if s.config.Tracing.Enabled {
		if err := tracing.Init(s.config.Tracing.ServiceName, s.config.Tracing.ServiceVersion, s.config.Tracing.OutputFile); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	if s.runner == nil {
		s.runner = runner.New(s.logger)
	}
	if s.nodes == nil {
		nodes, err := s.newNodeDAO(ctx)
		if err != nil {
			return err
		}
		s.nodes = nodes
	}

	s.actions = extension.NewActions(extension.Traced)
	s.actions.Register(fleur.New(s.fs, s.runner, s.config.WorkURL, s.logger))
	s.actions.Register(inpgen.New(s.fs, s.runner, s.config.WorkURL, s.logger))
	for _, service := range s.extensionServices {
		s.actions.Register(service)
	}
	sched, err := scheduler.New(s.actions,
		scheduler.WithConfig(s.config.Scheduler),
		scheduler.WithNodeDAO(s.nodes),
		scheduler.WithLogger(s.logger),
		scheduler.WithMetrics(s.metrics))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	baseService := base.New(sched, s.nodes, base.WithLogger(s.logger), base.WithMetrics(s.metrics))
	s.runtime = &Runtime{
		scheduler: sched,
		base:      baseService,
		scf:       scf.New(s.fs, sched, s.nodes, scf.WithLogger(s.logger), scf.WithMetrics(s.metrics), scf.WithBase(baseService)),
		nodes:     s.nodes,
		logger:    s.logger.NewComponentLogger("runtime"),
		closers:   s.closers(),
		running:   make(map[string]*submission),
	}
	return nil
}

func (s *Service) newNodeDAO(ctx context.Context) (dao.Service[string, execution.Node], error) {
	switch s.config.Store.Kind {
	case StoreFS:
		return nodefs.New(ctx, s.config.Store.URL, s.fs, s.logger)
	case StoreSQLite:
		return nodesqlite.New(ctx, s.config.Store.URL)
	default:
		return nodememory.New(), nil
	}
}

func (s *Service) closers() []io.Closer {
	ret := []io.Closer{s.runner}
	if closer, ok := s.nodes.(io.Closer); ok {
		ret = append(ret, closer)
	}
	return ret
}

// RegisterExtensionServices registers calculation services after construction
func (s *Service) RegisterExtensionServices(services ...types.Service) {
	for i := range services {
		s.actions.Register(services[i])
	}
}

// Runtime returns the runtime
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Config returns the effective configuration
func (s *Service) Config() *Config {
	return s.config
}

// Metrics returns the metrics, nil-safe when disabled
func (s *Service) Metrics() *telemetry.Metrics {
	return s.metrics
}
