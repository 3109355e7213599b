// Command coordinator runs the star-topology coordinator described in
// §4.3: it accepts REGISTER messages from nodes joining the cluster and
// broadcasts the updated directory to every registered node.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/clusterdf/ddf/internal/config"
	"github.com/clusterdf/ddf/internal/coordinator"
	"github.com/clusterdf/ddf/pkg/log"
	"github.com/clusterdf/ddf/pkg/runtimeEnv"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("coordinator: %v", err)
	}
}

func run() error {
	cfg, err := config.ParseCoordinator(os.Args[1:])
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if err := runtimeEnv.LoadEnv(cfg.EnvFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	// Flags parsed above win over .env values already sitting in the
	// process environment, matching the teacher's layering: flags are the
	// operator's explicit intent, .env is a convenience default.

	log.SetLogLevel(cfg.LogLevel)
	log.SetTag("coordinator")

	c := coordinator.New(cfg.IP, cfg.Port)
	if err := c.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	log.Infof("coordinator: listening on %s:%d, waiting for %d node(s)", cfg.IP, cfg.Port, cfg.NumNodes)
	runtimeEnv.SystemdNotify(true, "coordinator accepting registrations")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("coordinator: shutting down")
	runtimeEnv.SystemdNotify(false, "shutting down")
	return c.Shutdown()
}
