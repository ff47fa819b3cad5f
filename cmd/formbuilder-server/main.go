package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	formbuilder "github.com/goliatone/go-formbuilder"
	"github.com/goliatone/go-formbuilder/internal/server"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	dbPath := flag.String("db", "formbuilder.db", "path to the form collection database")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*verbose {
		logger = logger.Level(zerolog.InfoLevel)
	}

	st, err := formbuilder.OpenBoltStore(*dbPath, store.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Str("path", *dbPath).Msg("open store")
	}
	defer st.Close()

	b, err := formbuilder.NewBuilder(st)
	if err != nil {
		logger.Fatal().Err(err).Msg("load form collection")
	}

	srv, err := server.New(b, server.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("build server")
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info().Str("addr", *addr).Str("db", *dbPath).Msg("serving form previews")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
