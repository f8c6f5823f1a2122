package ftps

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jlaffaye/ftp"
)

// DefaultUser is the fixed LAN-mode user name.
const DefaultUser = "bblp"

// Config describes the printer's FTPS endpoint.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string

	// Timeout bounds dialling and each command. Zero means 30s.
	Timeout time.Duration
}

// Entry is one directory listing entry.
type Entry struct {
	Name string
	Size uint64
	Time time.Time
	Dir  bool
}

// Client is a reconnectable FTPS session.
type Client struct {
	cfg    Config
	tlsCfg *tls.Config
	conn   *ftp.ServerConn
}

// New creates a closed client. Call Connect before any other operation.
func New(cfg Config) *Client {
	if cfg.User == "" {
		cfg.User = DefaultUser
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg: cfg,
		tlsCfg: &tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: true, //nolint:gosec // Printer uses a self-signed certificate
			ClientSessionCache: tls.NewLRUClientSessionCache(0),
		},
	}
}

// Addr returns host:port.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
}

// Closed reports whether there is no live session.
func (c *Client) Closed() bool {
	return c.conn == nil
}

// Connect dials and logs in, replacing any previous session.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		c.conn.Quit() //nolint:errcheck // Replacing a possibly dead session
		c.conn = nil
	}

	conn, err := ftp.Dial(c.Addr(),
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(c.cfg.Timeout),
		ftp.DialWithTLS(c.tlsCfg),
		ftp.DialWithDisabledEPSV(true),
	)
	if err != nil {
		return fmt.Errorf("dialling %s: %w", c.Addr(), err)
	}

	if err := conn.Login(c.cfg.User, c.cfg.Password); err != nil {
		conn.Quit() //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("logging in to %s: %w", c.Addr(), err)
	}

	c.conn = conn
	return nil
}

// List returns the entries of dir.
func (c *Client) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	raw, err := c.conn.List(dir)
	if err != nil {
		return nil, c.classify(fmt.Sprintf("listing %s", dir), err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		if e == nil || e.Name == "." || e.Name == ".." {
			continue
		}
		entries = append(entries, Entry{
			Name: e.Name,
			Size: e.Size,
			Time: e.Time,
			Dir:  e.Type == ftp.EntryTypeFolder,
		})
	}
	return entries, nil
}

// Download copies remote into the local file, creating or truncating it.
// A partial file is removed on failure.
func (c *Client) Download(ctx context.Context, remote, local string) (err error) {
	if err := c.ready(ctx); err != nil {
		return err
	}

	resp, err := c.conn.Retr(remote)
	if err != nil {
		return c.classify(fmt.Sprintf("retrieving %s", remote), err)
	}
	defer func() {
		if cerr := resp.Close(); cerr != nil && err == nil {
			err = c.classify(fmt.Sprintf("finishing %s", remote), cerr)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(local), 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(local), err)
	}
	f, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("creating %s: %w", local, err)
	}

	_, copyErr := io.Copy(f, ctxReader{ctx: ctx, r: resp})
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(local) //nolint:errcheck // Partial download
		if copyErr != nil {
			return c.classify(fmt.Sprintf("downloading %s", remote), copyErr)
		}
		return fmt.Errorf("writing %s: %w", local, closeErr)
	}
	return nil
}

// Close ends the session. Safe to call when already closed.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Quit()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("closing ftps session: %w", err)
	}
	return nil
}

func (c *Client) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.conn == nil {
		return ErrNotConnected
	}
	return nil
}

// classify maps a library error onto the package sentinels. Anything that
// is not a protocol reply means the session is gone.
func (c *Client) classify(op string, err error) error {
	if IsNotFound(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}

	var reply *textproto.Error
	if errors.As(err, &reply) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	if c.conn != nil {
		c.conn.Quit() //nolint:errcheck // Session already broken
		c.conn = nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrNotConnected, err)
}

// IsNotFound reports whether err is a 550 reply.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var reply *textproto.Error
	return errors.As(err, &reply) && reply.Code == ftp.StatusFileUnavailable
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
