// Package health serves the static liveness page hosting platforms poll.
package health

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

const statusPage = "<h1>Assistant is running!</h1><p>Status: Active</p>"

type Config struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type Server struct {
	echo *echo.Echo
	addr string
}

func NewServer(addr string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, addr: addr}
	e.GET("/", s.handleStatus)
	e.GET("/health", s.handleStatus)
	return s
}

func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is cancelled, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("🌐 Health server started")
		errCh <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.echo.Shutdown(context.Background())
	}
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.HTML(http.StatusOK, statusPage)
}
