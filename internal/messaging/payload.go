package messaging

import (
	"fmt"
	"strconv"
	"strings"
)

// PutSep is the inner delimiter PUT payloads use between key name and
// value bytes, chosen because it is already reserved for structural
// separators elsewhere in the wire format (§4.2/§6) and key names are
// required not to contain it.
const PutSep = "~"

// EncodePut renders "<key_name>~<value_bytes>" (§6). Returns an error if
// name contains any byte that would re-tokenize the header.
func EncodePut(name string, value []byte) (string, error) {
	if err := validateKeyName(name); err != nil {
		return "", err
	}
	return name + PutSep + string(value), nil
}

// DecodePut parses a PUT payload into key name and value bytes.
func DecodePut(payload string) (name string, value []byte, err error) {
	i := strings.Index(payload, PutSep)
	if i < 0 {
		return "", nil, fmt.Errorf("messaging: malformed PUT payload %q", payload)
	}
	return payload[:i], []byte(payload[i+len(PutSep):]), nil
}

// EncodeGet renders a GET payload: just the key name.
func EncodeGet(name string) (string, error) {
	if err := validateKeyName(name); err != nil {
		return "", err
	}
	return name, nil
}

// DecodeGet parses a GET payload into a key name.
func DecodeGet(payload string) string {
	return payload
}

func validateKeyName(name string) error {
	if strings.ContainsAny(name, "~;:") {
		return fmt.Errorf("messaging: key name %q must not contain '~', ';', or ':'", name)
	}
	return nil
}

// EncodeRegister renders a REGISTER payload: the registering node's
// advertised "<host>:<port>" address.
func EncodeRegister(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}

// DecodeRegister parses a REGISTER payload into host and port.
func DecodeRegister(payload string) (host string, port int, err error) {
	return ParseHostPort(payload)
}

// ParseHostPort splits "<host>:<port>" into its parts — the same shape
// used by REGISTER payloads, DIRECTORY entries, and a node's own
// advertised address.
func ParseHostPort(addr string) (host string, port int, err error) {
	i := strings.LastIndexByte(addr, ':')
	if i < 0 {
		return "", 0, fmt.Errorf("messaging: malformed address %q", addr)
	}
	port, err = strconv.Atoi(addr[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("messaging: malformed port in %q: %w", addr, err)
	}
	return addr[:i], port, nil
}

// EncodeDirectory renders a DIRECTORY payload: comma-separated
// "<host>:<port>" entries, one per registered node, in registration order.
func EncodeDirectory(addrs []string) string {
	return strings.Join(addrs, ",")
}

// DecodeDirectory parses a DIRECTORY payload into its ordered address list.
func DecodeDirectory(payload string) []string {
	if payload == "" {
		return nil
	}
	return strings.Split(payload, ",")
}
