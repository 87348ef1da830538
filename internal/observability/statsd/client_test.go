package statsd

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readLine(t *testing.T, conn *net.UDPConn) string {
	t.Helper()
	buf := make([]byte, 1024)
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("deadline: %v", err)
	}
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(buf[:n])
}

func TestClient_WritesLines(t *testing.T) {
	srv := listen(t)
	c, err := Dial(context.Background(), Config{
		Address:    srv.LocalAddr().String(),
		Prefix:     ".convenios.",
		GlobalTags: map[string]string{"env": "test", " ": "dropped"},
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if !c.Enabled() {
		t.Fatal("client should be enabled")
	}

	c.Count("http.requests", 1, map[string]string{"route": "/api/board/drop", "env": "override"})
	if got := readLine(t, srv); got != "convenios.http.requests:1|c|#env:override,route:/api/board/drop" {
		t.Fatalf("count line = %q", got)
	}

	c.Timing("http.request_duration", 1500*time.Microsecond, nil)
	if got := readLine(t, srv); got != "convenios.http.request_duration:1.5|ms|#env:test" {
		t.Fatalf("timing line = %q", got)
	}
}

func TestClient_DisabledAndNil(t *testing.T) {
	c, err := Dial(context.Background(), Config{Address: "  "})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if c.Enabled() {
		t.Fatal("client without address should be disabled")
	}
	c.Count("x", 1, nil)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var nilClient *Client
	nilClient.Count("x", 1, nil)
	nilClient.Timing("x", time.Second, nil)
	if nilClient.Enabled() || nilClient.Close() != nil {
		t.Fatal("nil client should be a disabled no-op")
	}
}

func TestClient_CloseStopsWrites(t *testing.T) {
	srv := listen(t)
	c, err := Dial(context.Background(), Config{Address: srv.LocalAddr().String()})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if c.Enabled() {
		t.Fatal("closed client should be disabled")
	}
	c.Count("after.close", 1, nil)
}

func TestDial_Error(t *testing.T) {
	_, err := Dial(context.Background(), Config{Address: "bad address"})
	if err == nil || !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("Dial error = %v", err)
	}
}

func TestMetricName(t *testing.T) {
	tests := map[string]string{
		" board drop ":  "board_drop",
		"a..b":          "a.b",
		".auth.login.":  "auth.login",
		"http/requests": "http_requests",
		"x|y:z":         "x_y_z",
		"":              "",
	}
	for in, want := range tests {
		if got := metricName(in); got != want {
			t.Errorf("metricName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEncodeTags(t *testing.T) {
	if got := encodeTags(nil, nil); got != "" {
		t.Fatalf("empty tags = %q", got)
	}
	got := encodeTags(map[string]string{"b": "2"}, map[string]string{"a": "x,y|z"})
	if got != "|#a:x_y_z,b:2" {
		t.Fatalf("encodeTags = %q", got)
	}
}
