package clusternode

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/clusterdf/ddf/internal/messaging"
	"github.com/clusterdf/ddf/internal/transport"
)

// fakeCoordinator accepts a REGISTER, ACKs it, then lets the test decide
// when to push a DIRECTORY to the registering node.
type fakeCoordinator struct {
	ln net.Listener

	mu          sync.Mutex
	registered  chan messaging.Message
}

func startFakeCoordinator(t *testing.T) *fakeCoordinator {
	t.Helper()
	ln, err := transport.BindAndListen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("BindAndListen: %v", err)
	}
	fc := &fakeCoordinator{ln: ln, registered: make(chan messaging.Message, 4)}
	go func() {
		for {
			conn, err, ok := transport.AcceptNonblocking(fc.ln, 100*time.Millisecond)
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
				fc.registered <- msg
				reply := messaging.New("127.0.0.1", 0, messaging.ACK, "")
				transport.SendFramed(conn, []byte(reply.Encode()))
			}()
		}
	}()
	return fc
}

func (fc *fakeCoordinator) addr() string { return fc.ln.Addr().String() }

type recordingHandler struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{values: make(map[string][]byte)}
}

func (h *recordingHandler) HandlePut(name string, value []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values[name] = append([]byte(nil), value...)
	return nil
}

func (h *recordingHandler) HandleGet(name string) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.values[name]
	return v, ok
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return port
}

func TestNodeStartRegistersAndWaitsForDirectory(t *testing.T) {
	coord := startFakeCoordinator(t)
	node := New(0, "127.0.0.1", freePort(t), coord.addr(), newRecordingHandler())

	started := make(chan error, 1)
	go func() { started <- node.Start() }()

	var regMsg messaging.Message
	select {
	case regMsg = <-coord.registered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for registration")
	}
	if regMsg.Tag != messaging.REGISTER {
		t.Fatalf("expected REGISTER, got %v", regMsg.Tag)
	}

	dirMsg := messaging.New("127.0.0.1", 0, messaging.DIRECTORY, messaging.EncodeDirectory([]string{node.Addr()}))
	resp, err := transport.Request(node.Addr(), []byte(dirMsg.Encode()))
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	reply, err := messaging.Decode(string(resp))
	if err != nil || reply.Tag != messaging.ACK {
		t.Fatalf("expected ACK, got %v err=%v", reply, err)
	}

	select {
	case err := <-started:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after directory arrived")
	}

	if got := node.Directory(); len(got) != 1 || got[0] != node.Addr() {
		t.Errorf("got directory %v", got)
	}
}

func TestNodeHandlesPutAndGet(t *testing.T) {
	coord := startFakeCoordinator(t)
	handler := newRecordingHandler()
	node := New(0, "127.0.0.1", freePort(t), coord.addr(), handler)

	go node.Start()
	<-coord.registered
	dirMsg := messaging.New("127.0.0.1", 0, messaging.DIRECTORY, messaging.EncodeDirectory([]string{node.Addr()}))
	if _, err := transport.Request(node.Addr(), []byte(dirMsg.Encode())); err != nil {
		t.Fatalf("Request: %v", err)
	}

	putPayload, err := messaging.EncodePut("mykey", []byte("myvalue"))
	if err != nil {
		t.Fatalf("EncodePut: %v", err)
	}
	putMsg := messaging.New("127.0.0.1", 0, messaging.PUT, putPayload)
	resp, err := transport.Request(node.Addr(), []byte(putMsg.Encode()))
	if err != nil {
		t.Fatalf("Request PUT: %v", err)
	}
	reply, _ := messaging.Decode(string(resp))
	if reply.Tag != messaging.ACK {
		t.Fatalf("expected ACK for PUT, got %v", reply.Tag)
	}

	getMsg := messaging.New("127.0.0.1", 0, messaging.GET, "mykey")
	resp, err = transport.Request(node.Addr(), []byte(getMsg.Encode()))
	if err != nil {
		t.Fatalf("Request GET: %v", err)
	}
	reply, _ = messaging.Decode(string(resp))
	if reply.Tag != messaging.ACK || reply.Payload != "myvalue" {
		t.Fatalf("got %+v", reply)
	}

	getMsg = messaging.New("127.0.0.1", 0, messaging.GET, "missing")
	resp, err = transport.Request(node.Addr(), []byte(getMsg.Encode()))
	if err != nil {
		t.Fatalf("Request GET missing: %v", err)
	}
	reply, _ = messaging.Decode(string(resp))
	if reply.Tag != messaging.NACK {
		t.Fatalf("expected NACK for missing key, got %v", reply.Tag)
	}
}

func TestNodeHandlesShutdown(t *testing.T) {
	coord := startFakeCoordinator(t)
	node := New(0, "127.0.0.1", freePort(t), coord.addr(), newRecordingHandler())

	go node.Start()
	<-coord.registered
	dirMsg := messaging.New("127.0.0.1", 0, messaging.DIRECTORY, messaging.EncodeDirectory([]string{node.Addr()}))
	transport.Request(node.Addr(), []byte(dirMsg.Encode()))

	shutdownMsg := messaging.New("127.0.0.1", 0, messaging.SHUTDOWN, "")
	resp, err := transport.Request(node.Addr(), []byte(shutdownMsg.Encode()))
	if err != nil {
		t.Fatalf("Request SHUTDOWN: %v", err)
	}
	reply, _ := messaging.Decode(string(resp))
	if reply.Tag != messaging.ACK {
		t.Fatalf("expected ACK for SHUTDOWN, got %v", reply.Tag)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !node.isShuttingDown() {
		if time.Now().After(deadline) {
			t.Fatal("node never observed shutdown")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
