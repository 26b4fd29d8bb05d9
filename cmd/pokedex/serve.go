package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/jrsteele09/go-pokedex/internal/config"
	"github.com/jrsteele09/go-pokedex/server"
	"github.com/jrsteele09/go-pokedex/token/issuer"
	"github.com/rs/zerolog/log"
)

// serve runs the development backend until ctx is cancelled
func serve(ctx context.Context, c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	iss := issuer.New(issuer.NewHMACSigner(c.GetSigningSecret()),
		issuer.WithTokenExpiry(c.GetDefaultAccessTokenExpiry(), c.GetDefaultRefreshTokenExpiry()))
	srv := &http.Server{
		Addr:              c.GetServerAddr(),
		Handler:           server.New(server.DefaultCatalog(), iss, server.WithEnv(c.GetEnv())),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(srv)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	if err := shutdown(srv); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}

func listenAndServe(srv *http.Server) error {
	log.Info().Str("addr", srv.Addr).Msg("Server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
