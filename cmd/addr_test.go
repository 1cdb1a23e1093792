package cmd

import "testing"

func TestValidateAddr(t *testing.T) {
	t.Parallel()

	accepted := []struct {
		name string
		addr string
	}{
		{name: "port only", addr: ":8080"},
		{name: "localhost", addr: "localhost:8080"},
		{name: "loopback", addr: "127.0.0.1:8080"},
		{name: "all interfaces", addr: "0.0.0.0:80"},
		{name: "ipv6 loopback", addr: "[::1]:8080"},
		{name: "port zero auto-assigns", addr: ":0"},
		{name: "highest port", addr: ":65535"},
		{name: "hostname", addr: "myhost:9090"},
	}
	for _, tt := range accepted {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := validateAddr(tt.addr); err != nil {
				t.Errorf("validateAddr(%q) = %v, want nil", tt.addr, err)
			}
		})
	}

	rejected := []struct {
		name string
		addr string
	}{
		{name: "no port", addr: "localhost"},
		{name: "bare number", addr: "8080"},
		{name: "empty string", addr: ""},
		{name: "port non-numeric", addr: ":abc"},
		{name: "port negative", addr: ":-1"},
		{name: "port above range", addr: ":65536"},
		{name: "colon without port", addr: "localhost:"},
		{name: "host with space", addr: "my host:8080"},
		{name: "host with tab", addr: "my\thost:8080"},
		{name: "host with newline", addr: "my\nhost:8080"},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := validateAddr(tt.addr); err == nil {
				t.Errorf("validateAddr(%q) = nil, want error", tt.addr)
			}
		})
	}
}

func FuzzValidateAddr(f *testing.F) {
	f.Add(":8080")
	f.Add("localhost:8080")
	f.Add("127.0.0.1:80")
	f.Add("")
	f.Add("abc")
	f.Add(":0")
	f.Add(":99999")
	f.Add("[::1]:8080")
	f.Add("host with space:80")

	f.Fuzz(func(t *testing.T, addr string) {
		_ = validateAddr(addr) // must not panic
	})
}
