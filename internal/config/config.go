// Package config parses the flag-based CLI surface for the two binaries
// (SPEC_FULL.md §6): cmd/node and cmd/coordinator. Both also take an
// --env-file path, which the binaries load into the process environment
// with github.com/joho/godotenv through pkg/runtimeEnv. Flag values are
// read only from the command line; the .env file does not change them.
package config

import (
	"flag"
	"fmt"
)

// Node holds cmd/node's parsed flags.
type Node struct {
	NodeID      int
	NodeIP      string
	NodePort    int
	MasterIP    string
	MasterPort  int
	NumNodes    int
	LogLevel    string
	MetricsAddr string
	NatsAddr    string
	EnvFile     string
}

// ParseNode parses cmd/node's flags from args (os.Args[1:] in production,
// an explicit slice in tests).
func ParseNode(args []string) (*Node, error) {
	fs := flag.NewFlagSet("node", flag.ContinueOnError)
	c := &Node{}

	fs.IntVar(&c.NodeID, "node-id", 0, "this node's id, must match its position in the directory")
	fs.StringVar(&c.NodeIP, "node-ip", "127.0.0.1", "this node's advertised IP")
	fs.IntVar(&c.NodePort, "node-port", 0, "this node's listen port")
	fs.StringVar(&c.MasterIP, "master-ip", "127.0.0.1", "coordinator IP")
	fs.IntVar(&c.MasterPort, "master-port", 0, "coordinator port")
	fs.IntVar(&c.NumNodes, "num-nodes", 1, "expected cluster size")
	fs.StringVar(&c.LogLevel, "loglevel", "info", "log level: debug, info, warn, error, fatal")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", "", "Prometheus/debug HTTP listen address, empty disables it")
	fs.StringVar(&c.NatsAddr, "nats-addr", "", "optional NATS broker address for waitAndGet push notifications")
	fs.StringVar(&c.EnvFile, "env-file", ".env", "optional .env file loaded into the process environment")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.NodePort == 0 {
		return nil, fmt.Errorf("config: --node-port is required")
	}
	if c.MasterPort == 0 {
		return nil, fmt.Errorf("config: --master-port is required")
	}
	return c, nil
}

// Coordinator holds cmd/coordinator's parsed flags.
type Coordinator struct {
	IP       string
	Port     int
	NumNodes int
	LogLevel string
	EnvFile  string
}

// ParseCoordinator parses cmd/coordinator's flags from args.
func ParseCoordinator(args []string) (*Coordinator, error) {
	fs := flag.NewFlagSet("coordinator", flag.ContinueOnError)
	c := &Coordinator{}

	fs.StringVar(&c.IP, "ip", "127.0.0.1", "this coordinator's advertised IP")
	fs.IntVar(&c.Port, "port", 0, "this coordinator's listen port")
	fs.IntVar(&c.NumNodes, "num-nodes", 1, "registrations to wait for before logging the cluster as formed (advisory only)")
	fs.StringVar(&c.LogLevel, "loglevel", "info", "log level: debug, info, warn, error, fatal")
	fs.StringVar(&c.EnvFile, "env-file", ".env", "optional .env file loaded into the process environment")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.Port == 0 {
		return nil, fmt.Errorf("config: --port is required")
	}
	return c, nil
}
