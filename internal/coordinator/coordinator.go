// Package coordinator implements the star-topology registration point
// named by §4.3: it accepts REGISTER messages from nodes, maintains an
// append-only roster, and broadcasts DIRECTORY updates whenever the
// roster changes.
package coordinator

import (
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clusterdf/ddf/internal/messaging"
	"github.com/clusterdf/ddf/internal/transport"
	"github.com/clusterdf/ddf/pkg/log"
)

// PollInterval bounds how long AcceptNonblocking blocks per iteration of
// the listener loop, so Shutdown is noticed promptly (§4.1).
const PollInterval = 200 * time.Millisecond

// Coordinator holds the roster and answers registrations.
type Coordinator struct {
	host string
	port int

	ln net.Listener

	mu           sync.Mutex
	roster       []string
	shuttingDown bool

	wg sync.WaitGroup
}

// New builds a Coordinator that will advertise host:port as its own
// address once started.
func New(host string, port int) *Coordinator {
	return &Coordinator{host: host, port: port}
}

func (c *Coordinator) addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// Start binds the listener and begins serving registrations in the
// background. It returns once the listener is bound.
func (c *Coordinator) Start() error {
	ln, err := transport.BindAndListen(c.addr())
	if err != nil {
		return err
	}
	c.ln = ln

	c.wg.Add(1)
	go c.serve()
	return nil
}

func (c *Coordinator) serve() {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		done := c.shuttingDown
		c.mu.Unlock()
		if done {
			return
		}

		conn, err, ok := transport.AcceptNonblocking(c.ln, PollInterval)
		if err != nil {
			log.Errorf("coordinator: accept: %v", err)
			return
		}
		if !ok {
			continue
		}
		go c.handleConn(conn)
	}
}

func (c *Coordinator) handleConn(conn net.Conn) {
	defer conn.Close()

	raw, err := transport.RecvFramed(conn)
	if err != nil {
		log.Errorf("coordinator: recv: %v", err)
		return
	}
	msg, err := messaging.Decode(string(raw))
	if err != nil {
		log.Critf("coordinator: malformed message: %v", err)
		return
	}

	switch msg.Tag {
	case messaging.REGISTER:
		c.handleRegister(conn, msg)
	default:
		log.Warnf("coordinator: unexpected tag %v from %s:%d", msg.Tag, msg.SenderHost, msg.SenderPort)
		c.reply(conn, messaging.NACK, "")
	}
}

// handleRegister appends the new address to the roster (if not already
// present), ACKs the registering node on its own connection, then
// broadcasts the updated DIRECTORY to the whole roster — the new node is
// guaranteed to appear in its own update since it is appended before the
// broadcast begins (§4.3).
func (c *Coordinator) handleRegister(conn net.Conn, msg messaging.Message) {
	addr := fmt.Sprintf("%s:%d", msg.SenderHost, msg.SenderPort)

	c.mu.Lock()
	isNew := true
	for _, a := range c.roster {
		if a == addr {
			isNew = false
			break
		}
	}
	if isNew {
		c.roster = append(c.roster, addr)
	}
	roster := append([]string(nil), c.roster...)
	c.mu.Unlock()

	c.reply(conn, messaging.ACK, "")

	if isNew {
		log.Infof("coordinator: registered %s (roster size %d)", addr, len(roster))
		c.broadcastDirectory(roster)
	}
}

// broadcastDirectory opens a fresh connection to every roster member and
// sends the serialized roster, fanning out with errgroup so one
// slow/dead peer does not serialize behind the others (§4.3).
func (c *Coordinator) broadcastDirectory(roster []string) {
	payload := messaging.EncodeDirectory(roster)
	msg := messaging.New(c.host, c.port, messaging.DIRECTORY, payload)

	var g errgroup.Group
	for _, target := range roster {
		target := target
		g.Go(func() error {
			resp, err := transport.Request(target, []byte(msg.Encode()))
			if err != nil {
				return fmt.Errorf("directory broadcast to %s: %w", target, err)
			}
			reply, err := messaging.Decode(string(resp))
			if err != nil {
				return fmt.Errorf("directory broadcast to %s: %w", target, err)
			}
			if reply.Tag != messaging.ACK {
				return fmt.Errorf("directory broadcast to %s: expected ACK, got %v", target, reply.Tag)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Errorf("coordinator: %v", err)
	}
}

func (c *Coordinator) reply(conn net.Conn, tag messaging.Tag, payload string) {
	msg := messaging.New(c.host, c.port, tag, payload)
	if err := transport.SendFramed(conn, []byte(msg.Encode())); err != nil {
		log.Errorf("coordinator: reply: %v", err)
	}
}

// Shutdown stops accepting new registrations, joins the listener, then
// sends SHUTDOWN to every roster member and awaits ACK (§4.3).
func (c *Coordinator) Shutdown() error {
	c.mu.Lock()
	c.shuttingDown = true
	roster := append([]string(nil), c.roster...)
	c.mu.Unlock()

	if err := c.ln.Close(); err != nil {
		return fmt.Errorf("coordinator: close listener: %w", err)
	}
	c.wg.Wait()

	msg := messaging.New(c.host, c.port, messaging.SHUTDOWN, "")
	var g errgroup.Group
	for _, target := range roster {
		target := target
		g.Go(func() error {
			resp, err := transport.Request(target, []byte(msg.Encode()))
			if err != nil {
				return fmt.Errorf("shutdown notice to %s: %w", target, err)
			}
			reply, err := messaging.Decode(string(resp))
			if err != nil || reply.Tag != messaging.ACK {
				return fmt.Errorf("shutdown notice to %s: no ACK", target)
			}
			return nil
		})
	}
	return g.Wait()
}
