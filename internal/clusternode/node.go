// Package clusternode implements the per-process runtime shared by every
// worker: register with the coordinator, hold the directory the
// coordinator publishes, and dispatch inbound control messages — PUT/GET
// to a caller-supplied Handler, everything else handled here (§4.4).
package clusternode

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/clusterdf/ddf/internal/messaging"
	"github.com/clusterdf/ddf/internal/transport"
	"github.com/clusterdf/ddf/pkg/log"
)

// PollInterval bounds how long AcceptNonblocking blocks per listener
// iteration.
const PollInterval = 200 * time.Millisecond

// Handler answers the messages a node runtime cannot itself interpret —
// for the KV store, PUT and GET (§4.4's "subclass-provided handler").
type Handler interface {
	HandlePut(name string, value []byte) error
	HandleGet(name string) (value []byte, ok bool)
}

// Node is one worker process's membership and dispatch state.
type Node struct {
	ID              int
	host            string
	port            int
	coordinatorAddr string
	handler         Handler

	ln net.Listener

	dirMu     sync.Mutex
	dirCond   *sync.Cond
	directory []string
	haveDir   bool

	stateMu      sync.Mutex
	registered   bool
	shuttingDown bool

	wg sync.WaitGroup
}

// New builds a Node that will advertise host:port and register with
// coordinatorAddr once Start is called.
func New(id int, host string, port int, coordinatorAddr string, handler Handler) *Node {
	n := &Node{
		ID:              id,
		host:            host,
		port:            port,
		coordinatorAddr: coordinatorAddr,
		handler:         handler,
	}
	n.dirCond = sync.NewCond(&n.dirMu)
	return n
}

func (n *Node) Addr() string { return fmt.Sprintf("%s:%d", n.host, n.port) }

// Start binds the listener, begins serving, registers with the
// coordinator, and blocks until the first DIRECTORY arrives — replacing
// the tight spin the design notes flag as undesirable (§4.4/§9) with a
// condition variable.
func (n *Node) Start() error {
	ln, err := transport.BindAndListen(n.Addr())
	if err != nil {
		return err
	}
	n.ln = ln

	n.wg.Add(1)
	go n.serve()

	registerMsg := messaging.New(n.host, n.port, messaging.REGISTER, messaging.EncodeRegister(n.host, n.port))
	resp, err := transport.Request(n.coordinatorAddr, []byte(registerMsg.Encode()))
	if err != nil {
		return fmt.Errorf("clusternode: register: %w", err)
	}
	reply, err := messaging.Decode(string(resp))
	if err != nil {
		return fmt.Errorf("clusternode: register: %w", err)
	}
	if reply.Tag != messaging.ACK {
		return fmt.Errorf("clusternode: register: expected ACK, got %v", reply.Tag)
	}

	n.stateMu.Lock()
	n.registered = true
	n.stateMu.Unlock()
	log.Infof("clusternode: node %d registered with coordinator at %s", n.ID, n.coordinatorAddr)

	n.dirMu.Lock()
	for !n.haveDir {
		n.dirCond.Wait()
	}
	n.dirMu.Unlock()
	log.Infof("clusternode: node %d received initial directory", n.ID)
	return nil
}

// Directory returns a copy of the most recently received directory.
func (n *Node) Directory() []string {
	n.dirMu.Lock()
	defer n.dirMu.Unlock()
	return append([]string(nil), n.directory...)
}

func (n *Node) isShuttingDown() bool {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.shuttingDown
}

func (n *Node) serve() {
	defer n.wg.Done()
	for {
		if n.isShuttingDown() {
			return
		}
		conn, err, ok := transport.AcceptNonblocking(n.ln, PollInterval)
		if err != nil {
			log.Errorf("clusternode: accept: %v", err)
			return
		}
		if !ok {
			continue
		}
		go n.handleConn(conn)
	}
}

func (n *Node) handleConn(conn net.Conn) {
	defer conn.Close()

	raw, err := transport.RecvFramed(conn)
	if err != nil {
		log.Errorf("clusternode: recv: %v", err)
		return
	}
	msg, err := messaging.Decode(string(raw))
	if err != nil {
		log.Critf("clusternode: malformed message: %v", err)
		return
	}

	switch msg.Tag {
	case messaging.DIRECTORY:
		n.handleDirectory(conn, msg)
	case messaging.SHUTDOWN:
		n.handleShutdown(conn)
	case messaging.PUT:
		n.handlePut(conn, msg)
	case messaging.GET:
		n.handleGet(conn, msg)
	default:
		log.Warnf("clusternode: unexpected tag %v from %s:%d", msg.Tag, msg.SenderHost, msg.SenderPort)
		n.reply(conn, messaging.NACK, "")
	}
}

func (n *Node) handleDirectory(conn net.Conn, msg messaging.Message) {
	addrs := messaging.DecodeDirectory(msg.Payload)

	n.dirMu.Lock()
	n.directory = addrs
	n.haveDir = true
	n.dirCond.Broadcast()
	n.dirMu.Unlock()

	n.reply(conn, messaging.ACK, "")
}

func (n *Node) handleShutdown(conn net.Conn) {
	n.reply(conn, messaging.ACK, "")

	n.stateMu.Lock()
	n.shuttingDown = true
	n.registered = false
	n.stateMu.Unlock()
}

func (n *Node) handlePut(conn net.Conn, msg messaging.Message) {
	name, value, err := messaging.DecodePut(msg.Payload)
	if err != nil {
		log.Critf("clusternode: malformed PUT: %v", err)
		return
	}
	if err := n.handler.HandlePut(name, value); err != nil {
		log.Errorf("clusternode: PUT %s: %v", name, err)
		n.reply(conn, messaging.NACK, "")
		return
	}
	n.reply(conn, messaging.ACK, "")
}

func (n *Node) handleGet(conn net.Conn, msg messaging.Message) {
	name := messaging.DecodeGet(msg.Payload)
	value, ok := n.handler.HandleGet(name)
	if !ok {
		n.reply(conn, messaging.NACK, "")
		return
	}
	n.reply(conn, messaging.ACK, string(value))
}

func (n *Node) reply(conn net.Conn, tag messaging.Tag, payload string) {
	msg := messaging.New(n.host, n.port, tag, payload)
	if err := transport.SendFramed(conn, []byte(msg.Encode())); err != nil {
		log.Errorf("clusternode: reply: %v", err)
	}
}

// Wait blocks until the listener loop has exited — useful in tests and
// in main() after a SHUTDOWN has been observed.
func (n *Node) Wait() {
	n.wg.Wait()
}
