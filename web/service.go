package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/zeptools/gw-impose/svc"
)

const DefaultShutdownTimeout = 30 * time.Second

type Service struct {
	Ctx             context.Context    // Service Context
	cancel          context.CancelFunc // Service Context CancelFunc
	state           int                // internal service state
	done            chan error         // Shutdown Error Channel
	Server          *http.Server
	ShutdownTimeout time.Duration // in-flight requests get this long after Stop
	listener        net.Listener
}

// Ensure Service implements svc.Service
var _ svc.Service = (*Service)(nil)

func NewService(parentCtx context.Context, addr string, router http.Handler) *Service {
	svcCtx, svcCancel := context.WithCancel(parentCtx)
	return &Service{
		Ctx:    svcCtx,
		cancel: svcCancel,
		state:  svc.StateREADY,
		done:   make(chan error, 1),
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func (s *Service) Name() string {
	return "WebService"
}

// Start binds the listen address and serves in the background.
// A bind failure is returned immediately.
func (s *Service) Start() error {
	if s.state != svc.StateREADY {
		return fmt.Errorf("cannot start web service. not ready")
	}
	listener, err := net.Listen("tcp", s.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen(%q) failed: %w", s.Server.Addr, err)
	}
	s.listener = listener
	s.state = svc.StateRUNNING
	go s.run()
	return nil
}

// Addr is the bound address. Useful with ":0".
func (s *Service) Addr() string {
	if s.listener == nil {
		return s.Server.Addr
	}
	return s.listener.Addr().String()
}

func (s *Service) Stop() {
	s.cancel()
	s.state = svc.StateSTOPPED
	log.Println("[INFO][WEB] service stopped")
}

func (s *Service) Done() <-chan error {
	return s.done
}

func (s *Service) run() {
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[INFO][WEB] listening on %s ...", s.Addr())
		serveErr <- s.Server.Serve(s.listener)
	}()

	select {
	case err := <-serveErr:
		// died without being asked to
		s.done <- fmt.Errorf("http server: %w", err)
		return
	case <-s.Ctx.Done():
	}

	// Stop accepting new requests immediately, but let requests in flight finish within the timeout
	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	shutdownErr := s.Server.Shutdown(ctx)
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) && shutdownErr == nil {
		shutdownErr = err
	}
	if shutdownErr != nil {
		log.Printf("[ERROR][WEB] shutdown: %v", shutdownErr)
	} else {
		log.Println("[INFO][WEB] shutdown complete")
	}
	s.done <- shutdownErr
}
