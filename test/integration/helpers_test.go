package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"
)

// testServer holds the base URL of a running `looplang serve` instance.
var testServer string

func init() {
	testServer = os.Getenv("LOOPLANG_URL")
	if testServer == "" {
		testServer = "http://localhost:8787"
	}
	if !strings.HasPrefix(testServer, "http://") && !strings.HasPrefix(testServer, "https://") {
		testServer = "http://" + testServer
	}
}

// grpcEndpoint returns the gRPC endpoint address (host:port).
func grpcEndpoint() string {
	if ep := os.Getenv("LOOPLANG_GRPC_ENDPOINT"); ep != "" {
		return ep
	}
	return "localhost:8788"
}

// requireServer skips the test when nothing listens on addr.
func requireServer(t *testing.T, addr string) {
	t.Helper()
	if u, err := url.Parse(addr); err == nil && u.Host != "" {
		addr = u.Host
	}
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Skipf("looplang server not reachable at %s: %v", addr, err)
	}
	conn.Close()
}

// apiURL builds a full URL for the given API path.
func apiURL(path string) string {
	return strings.TrimRight(testServer, "/") + "/v1/" + path
}

// uniqueID returns a program ID that does not collide with earlier runs
// against the same server.
func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// doJSON sends body as JSON and decodes the JSON response.
func doJSON(t *testing.T, method, target string, body any) (int, map[string]any) {
	t.Helper()
	requireServer(t, testServer)

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, target, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("%s %s: invalid JSON %q: %v", method, target, data, err)
		}
	}
	return resp.StatusCode, out
}

// createProgram stores a program and deletes it when the test ends.
func createProgram(t *testing.T, id string, body map[string]any) {
	t.Helper()
	code, resp := doJSON(t, "POST", apiURL("programs?programId="+id), body)
	if code != http.StatusOK {
		t.Fatalf("createProgram failed with status %d: %v", code, resp)
	}
	t.Cleanup(func() {
		req, _ := http.NewRequest("DELETE", apiURL("programs/"+id), nil)
		if resp, err := http.DefaultClient.Do(req); err == nil {
			resp.Body.Close()
		}
	})
}

// register reads a number from a decoded register map.
func register(t *testing.T, regs any, name string) float64 {
	t.Helper()
	m, ok := regs.(map[string]any)
	if !ok {
		t.Fatalf("registers are not an object: %v", regs)
	}
	n, ok := m[name].(float64)
	if !ok {
		t.Fatalf("register %s is not a number: %v", name, m[name])
	}
	return n
}
