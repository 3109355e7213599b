package messaging

import "testing"

func TestMessageRoundTrip(t *testing.T) {
	m := New("10.0.0.5", 9000, PUT, "mykey~somebytes")
	encoded := m.Encode()
	if encoded != "10.0.0.5:9000;5;mykey~somebytes" {
		t.Fatalf("got %q", encoded)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != m {
		t.Errorf("got %+v, want %+v", decoded, m)
	}
}

func TestMessageRoundTripEmptyPayload(t *testing.T) {
	m := New("127.0.0.1", 1, ACK, "")
	decoded, err := Decode(m.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != m {
		t.Errorf("got %+v, want %+v", decoded, m)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := []string{"", "no-separators-at-all", "host:port;notanumber;payload"}
	for _, c := range cases {
		if _, err := Decode(c); err == nil {
			t.Errorf("Decode(%q) should have failed", c)
		}
	}
}

func TestTagString(t *testing.T) {
	if GET.String() != "GET" {
		t.Errorf("got %q", GET.String())
	}
	if Tag(99).String() == "" {
		t.Errorf("unknown tag should still stringify to something non-empty")
	}
}

func TestPutPayloadRoundTrip(t *testing.T) {
	encoded, err := EncodePut("mykey", []byte("somebytes"))
	if err != nil {
		t.Fatalf("EncodePut: %v", err)
	}
	name, value, err := DecodePut(encoded)
	if err != nil {
		t.Fatalf("DecodePut: %v", err)
	}
	if name != "mykey" || string(value) != "somebytes" {
		t.Errorf("got name=%q value=%q", name, value)
	}
}

func TestPutPayloadValueMayContainTilde(t *testing.T) {
	encoded, err := EncodePut("mykey", []byte("a~b~c"))
	if err != nil {
		t.Fatalf("EncodePut: %v", err)
	}
	name, value, err := DecodePut(encoded)
	if err != nil {
		t.Fatalf("DecodePut: %v", err)
	}
	if name != "mykey" || string(value) != "a~b~c" {
		t.Errorf("got name=%q value=%q", name, value)
	}
}

func TestEncodePutRejectsBadKeyName(t *testing.T) {
	for _, bad := range []string{"a~b", "a;b", "a:b"} {
		if _, err := EncodePut(bad, []byte("v")); err == nil {
			t.Errorf("EncodePut(%q, ...) should have failed", bad)
		}
	}
}

func TestRegisterPayloadRoundTrip(t *testing.T) {
	encoded := EncodeRegister("192.168.1.1", 8080)
	if encoded != "192.168.1.1:8080" {
		t.Fatalf("got %q", encoded)
	}
	host, port, err := DecodeRegister(encoded)
	if err != nil {
		t.Fatalf("DecodeRegister: %v", err)
	}
	if host != "192.168.1.1" || port != 8080 {
		t.Errorf("got host=%q port=%d", host, port)
	}
}

func TestDirectoryPayloadRoundTrip(t *testing.T) {
	addrs := []string{"10.0.0.1:9000", "10.0.0.2:9000", "10.0.0.3:9000"}
	encoded := EncodeDirectory(addrs)
	decoded := DecodeDirectory(encoded)
	if len(decoded) != 3 {
		t.Fatalf("got %d entries, want 3", len(decoded))
	}
	for i := range addrs {
		if decoded[i] != addrs[i] {
			t.Errorf("entry %d: got %q, want %q", i, decoded[i], addrs[i])
		}
	}
}

func TestDirectoryPayloadEmpty(t *testing.T) {
	if got := DecodeDirectory(""); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}
