// Command node runs one cluster member: it registers with the
// coordinator, serves PUT/GET over the transport framing, and hosts the
// KV store (§4.4, §4.5) that backs distributed columns and data frames.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/clusterdf/ddf/internal/clusternode"
	"github.com/clusterdf/ddf/internal/config"
	"github.com/clusterdf/ddf/internal/kv"
	"github.com/clusterdf/ddf/internal/metrics"
	"github.com/clusterdf/ddf/pkg/log"
	"github.com/clusterdf/ddf/pkg/notify"
	"github.com/clusterdf/ddf/pkg/runtimeEnv"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("node: %v", err)
	}
}

func run() error {
	cfg, err := config.ParseNode(os.Args[1:])
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if err := runtimeEnv.LoadEnv(cfg.EnvFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}

	log.SetLogLevel(cfg.LogLevel)
	log.SetTag(fmt.Sprintf("node %d", cfg.NodeID))

	var notifier *notify.Notifier
	if cfg.NatsAddr != "" {
		notifier, err = notify.Connect(cfg.NatsAddr)
		if err != nil {
			return fmt.Errorf("connect to nats at %s: %w", cfg.NatsAddr, err)
		}
		defer notifier.Close()
		log.Infof("node: waitAndGet notifications enabled via %s", cfg.NatsAddr)
	}

	// clusternode.Node and kv.Store each depend on the other: the node
	// needs a Handler to dispatch PUT/GET to, the store needs the node's
	// live directory to resolve remote keys. node is filled in below,
	// before Start is ever called, so the closure is safe once traffic
	// starts flowing.
	var node *clusternode.Node
	directory := func() []string { return node.Directory() }

	var store *kv.Store
	if notifier != nil {
		store = kv.NewStore(cfg.NodeID, directory, notifier)
	} else {
		store = kv.NewStore(cfg.NodeID, directory, nil)
	}

	coordinatorAddr := fmt.Sprintf("%s:%d", cfg.MasterIP, cfg.MasterPort)
	node = clusternode.New(cfg.NodeID, cfg.NodeIP, cfg.NodePort, coordinatorAddr, store)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				log.Errorf("node: metrics server stopped: %v", err)
			}
		}()
	}

	if err := node.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	log.Infof("node: %s registered, directory has %d member(s)", node.Addr(), len(node.Directory()))
	runtimeEnv.SystemdNotify(true, "node registered and serving")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("node: shutting down")
	runtimeEnv.SystemdNotify(false, "shutting down")
	// A SIGINT/SIGTERM here is an operator request, not a coordinator
	// SHUTDOWN broadcast, so there is no dispatch loop to join: the
	// process simply exits.
	return nil
}
