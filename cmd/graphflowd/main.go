// Command graphflowd runs the workflow engine as an HTTP service.
//
// The code review workflow is registered at startup so the service is
// usable out of the box. Additional graphs can be created at runtime
// through POST /graph/create.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smallnest/graphflow/engine"
	"github.com/smallnest/graphflow/httpapi"
	"github.com/smallnest/graphflow/log"
	"github.com/smallnest/graphflow/store/sqlite"
	"github.com/smallnest/graphflow/tool"
	"github.com/smallnest/graphflow/workflow/codereview"
)

func main() {
	var (
		addr     = flag.String("addr", ":8000", "listen address")
		logLevel = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		runDB    = flag.String("run-db", "", "sqlite file for persisting run records (empty: in-memory)")
	)
	flag.Parse()

	logger := log.New(*logLevel)
	log.SetDefault(logger)

	if err := run(*addr, *runDB, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(addr, runDB string, logger log.Logger) error {
	registry := tool.NewRegistry()
	codereview.Register(registry)

	opts := []engine.ServiceOption{engine.WithServiceLogger(logger)}
	if runDB != "" {
		rs, err := sqlite.NewRunStore(sqlite.Options{Path: runDB})
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		defer rs.Close()
		opts = append(opts, engine.WithRunStore(rs))
		logger.Info("persisting runs to %s", runDB)
	}

	service := engine.NewService(registry, opts...)

	reviewGraph, err := codereview.New().Compile()
	if err != nil {
		return fmt.Errorf("compile code review graph: %w", err)
	}
	graphID, err := service.RegisterGraph(context.Background(), reviewGraph)
	if err != nil {
		return fmt.Errorf("register code review graph: %w", err)
	}
	logger.Info("registered graph %q (%s)", reviewGraph.Name(), graphID)

	server := httpapi.NewServer(addr, service, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
