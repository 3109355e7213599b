package coordinator

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/clusterdf/ddf/internal/messaging"
	"github.com/clusterdf/ddf/internal/transport"
)

// fakeNode is a minimal stand-in for internal/clusternode that only knows
// how to ACK whatever the coordinator sends it, recording DIRECTORY
// payloads it receives.
type fakeNode struct {
	ln        net.Listener
	host      string
	port      int
	received  chan messaging.Message
}

func startFakeNode(t *testing.T) *fakeNode {
	t.Helper()
	ln, err := transport.BindAndListen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("BindAndListen: %v", err)
	}
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	var port int
	fmt.Sscanf(portStr, "%d", &port)

	n := &fakeNode{ln: ln, host: host, port: port, received: make(chan messaging.Message, 8)}
	go func() {
		for {
			conn, err, ok := transport.AcceptNonblocking(n.ln, 100*time.Millisecond)
			if err != nil {
				return
			}
			if !ok {
				continue
			}
			go func() {
				defer conn.Close()
				raw, err := transport.RecvFramed(conn)
				if err != nil {
					return
				}
				msg, err := messaging.Decode(string(raw))
				if err != nil {
					return
				}
				n.received <- msg
				reply := messaging.New(n.host, n.port, messaging.ACK, "")
				transport.SendFramed(conn, []byte(reply.Encode()))
			}()
		}
	}()
	return n
}

func (n *fakeNode) addr() string {
	return fmt.Sprintf("%s:%d", n.host, n.port)
}

func TestRegisterThenDirectoryBroadcast(t *testing.T) {
	c := New("127.0.0.1", 0)
	ln, err := transport.BindAndListen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("BindAndListen: %v", err)
	}
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	fmt.Sscanf(portStr, "%d", &c.port)
	c.ln = ln
	c.wg.Add(1)
	go c.serve()
	defer c.Shutdown()

	node := startFakeNode(t)

	registerMsg := messaging.New(node.host, node.port, messaging.REGISTER, messaging.EncodeRegister(node.host, node.port))
	resp, err := transport.Request(c.addr(), []byte(registerMsg.Encode()))
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	reply, err := messaging.Decode(string(resp))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if reply.Tag != messaging.ACK {
		t.Fatalf("expected ACK, got %v", reply.Tag)
	}

	select {
	case msg := <-node.received:
		if msg.Tag != messaging.DIRECTORY {
			t.Fatalf("expected DIRECTORY, got %v", msg.Tag)
		}
		addrs := messaging.DecodeDirectory(msg.Payload)
		if len(addrs) != 1 || addrs[0] != node.addr() {
			t.Errorf("got directory %v, want [%s]", addrs, node.addr())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for directory broadcast")
	}
}

func TestRegisterIsIdempotentForSameAddress(t *testing.T) {
	c := New("127.0.0.1", 0)
	ln, err := transport.BindAndListen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("BindAndListen: %v", err)
	}
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	fmt.Sscanf(portStr, "%d", &c.port)
	c.ln = ln
	c.wg.Add(1)
	go c.serve()
	defer c.Shutdown()

	node := startFakeNode(t)
	registerMsg := messaging.New(node.host, node.port, messaging.REGISTER, messaging.EncodeRegister(node.host, node.port))

	// First registration triggers a directory broadcast; the repeat does
	// not, since the address is already on the roster.
	if _, err := transport.Request(c.addr(), []byte(registerMsg.Encode())); err != nil {
		t.Fatalf("Request 0: %v", err)
	}
	<-node.received

	if _, err := transport.Request(c.addr(), []byte(registerMsg.Encode())); err != nil {
		t.Fatalf("Request 1: %v", err)
	}
	select {
	case msg := <-node.received:
		t.Fatalf("unexpected second broadcast: %v", msg)
	case <-time.After(300 * time.Millisecond):
	}

	c.mu.Lock()
	rosterSize := len(c.roster)
	c.mu.Unlock()
	if rosterSize != 1 {
		t.Errorf("got roster size %d, want 1", rosterSize)
	}
}
