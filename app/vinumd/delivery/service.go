package delivery

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/chanyoung/vinum/pkg/util/config"
	"github.com/chanyoung/vinum/pkg/util/mlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// Service serves the control plane over http.
type Service struct {
	as AdminService

	ln          net.Listener
	httpHandler http.Handler
	httpSrv     *http.Server
}

// NewDeliveryService creates the control plane server on the configured address.
func NewDeliveryService(cfg *config.Vinumd, as AdminService) (*Service, error) {
	logger = mlog.GetPackageLogger("app/vinumd/delivery")

	if cfg == nil || as == nil {
		return nil, errors.New("invalid nil arguments")
	}

	addr := net.JoinHostPort(cfg.ServerAddr, cfg.ServerPort)

	// 1. Listen on the control plane address.
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "listen control plane address failed")
	}

	// 2. Create a http handler.
	h := makeHandler(as)

	// 3. Create http server.
	hsrv := &http.Server{
		Handler:        h,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return &Service{
		as:          as,
		ln:          ln,
		httpHandler: h,
		httpSrv:     hsrv,
	}, nil
}

// Addr returns the address the server listens on.
func (s *Service) Addr() string {
	return s.ln.Addr().String()
}

// Run starts the control plane server.
func (s *Service) Run() {
	ctxLogger := mlog.GetMethodLogger(logger, "Service.Run")
	ctxLogger.Infof("Start control plane service on %s ...", s.Addr())

	go func() {
		if err := s.httpSrv.Serve(s.ln); err != nil && err != http.ErrServerClosed {
			ctxLogger.Error(errors.Wrap(err, "control plane server stopped"))
		}
	}()
}

// Stop shuts down the server, waiting for running requests up to the
// context deadline.
func (s *Service) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// AdminService provides the http handlers of the admin commands.
type AdminService interface {
	ListHandler(w http.ResponseWriter, r *http.Request)
	CreateHandler(w http.ResponseWriter, r *http.Request)
	GetHandler(w http.ResponseWriter, r *http.Request)
	StartHandler(w http.ResponseWriter, r *http.Request)
	StopHandler(w http.ResponseWriter, r *http.Request)
	InitHandler(w http.ResponseWriter, r *http.Request)
	OpenHandler(w http.ResponseWriter, r *http.Request)
	CloseHandler(w http.ResponseWriter, r *http.Request)
	SetStateHandler(w http.ResponseWriter, r *http.Request)
}
