package ftps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strings"
	"testing"
	"time"
)

// ===== Configuration =====

func TestNew_Defaults(t *testing.T) {
	c := New(Config{Host: "192.168.1.50", Port: 990, Password: "secret"})

	if c.cfg.User != DefaultUser {
		t.Errorf("User = %q, want %q", c.cfg.User, DefaultUser)
	}
	if c.cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", c.cfg.Timeout)
	}
	if !c.tlsCfg.InsecureSkipVerify {
		t.Error("expected certificate verification to be skipped")
	}
	if c.tlsCfg.ClientSessionCache == nil {
		t.Error("expected a TLS session cache for data connections")
	}
	if got := c.Addr(); got != "192.168.1.50:990" {
		t.Errorf("Addr() = %q, want 192.168.1.50:990", got)
	}
	if !c.Closed() {
		t.Error("new client should be closed")
	}
}

// ===== Error mapping =====

func TestOperationsRequireConnection(t *testing.T) {
	c := New(Config{Host: "printer", Port: 990})
	ctx := context.Background()

	if _, err := c.List(ctx, "/ipcam/thumbnail"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("List() error = %v, want ErrNotConnected", err)
	}
	if err := c.Download(ctx, "/cache/a.3mf", t.TempDir()+"/a.3mf"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Download() error = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on closed client error = %v", err)
	}
}

func TestOperationsHonourCancelledContext(t *testing.T) {
	c := New(Config{Host: "printer", Port: 990})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.List(ctx, "/"); !errors.Is(err, context.Canceled) {
		t.Errorf("List() error = %v, want context.Canceled", err)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"550 reply", &textproto.Error{Code: 550, Msg: "No such file"}, true},
		{"wrapped 550", fmt.Errorf("retr: %w", &textproto.Error{Code: 550}), true},
		{"sentinel", fmt.Errorf("x: %w", ErrNotFound), true},
		{"530 reply", &textproto.Error{Code: 530, Msg: "Login incorrect"}, false},
		{"io error", io.ErrUnexpectedEOF, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	c := New(Config{Host: "printer", Port: 990})

	err := c.classify("retrieving /cache/a.3mf", &textproto.Error{Code: 550, Msg: "not found"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("550 classified as %v, want ErrNotFound", err)
	}

	err = c.classify("listing /", &textproto.Error{Code: 451, Msg: "local error"})
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotConnected) {
		t.Errorf("451 classified as %v, want plain reply error", err)
	}

	err = c.classify("listing /", io.ErrUnexpectedEOF)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("EOF classified as %v, want ErrNotConnected", err)
	}
	if !strings.Contains(err.Error(), "listing /") {
		t.Errorf("error %q lacks operation", err)
	}
}

func TestCtxReader(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := ctxReader{ctx: ctx, r: strings.NewReader("abc")}

	buf := make([]byte, 1)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	cancel()
	if _, err := r.Read(buf); !errors.Is(err, context.Canceled) {
		t.Errorf("Read() after cancel error = %v, want context.Canceled", err)
	}
}
