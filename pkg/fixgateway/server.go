package fixgateway

import (
	"bytes"
	"fmt"
	"os"

	"github.com/joripage/exposure-gate/pkg/idgen"
	"github.com/joripage/exposure-gate/pkg/logging"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
)

// Server runs a FIX acceptor that answers every NewOrderSingle with an
// ExecutionReport carrying the admission decision.
type Server struct {
	app            *Application
	acceptor       *quickfix.Acceptor
	cfg            AppConfig
	admitter       Admitter
	ids            idgen.Generator
	logger         *logging.Logger
	configFilepath string
}

func NewServer(cfg AppConfig, admitter Admitter, logger *logging.Logger) *Server {
	return &Server{
		cfg:      cfg,
		admitter: admitter,
		ids:      idgen.UUID{},
		logger:   logger,
	}
}

func (s *Server) Init(configFilepath string) error {
	s.configFilepath = configFilepath
	return nil
}

func (s *Server) Start() error {
	data, err := os.ReadFile(s.configFilepath)
	if err != nil {
		return fmt.Errorf("error reading %v, %w", s.configFilepath, err)
	}

	appSettings, err := quickfix.ParseSettings(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("error parsing cfg: %w", err)
	}

	app := newApplication(s.cfg, s.admitter, s.ids, s.logger)
	logFactory, err := file.NewLogFactory(appSettings)
	if err != nil {
		return fmt.Errorf("unable to create fix log factory: %w", err)
	}

	acceptor, err := quickfix.NewAcceptor(app, quickfix.NewMemoryStoreFactory(), appSettings, logFactory)
	if err != nil {
		return fmt.Errorf("unable to create acceptor: %w", err)
	}

	if err := acceptor.Start(); err != nil {
		return fmt.Errorf("unable to start FIX acceptor: %w", err)
	}

	s.app = app
	s.acceptor = acceptor
	return nil
}

func (s *Server) Stop() error {
	if s.acceptor != nil {
		s.acceptor.Stop()
	}
	if s.app != nil {
		s.app.stop()
	}
	return nil
}
