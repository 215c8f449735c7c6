// Package nntp implements the reader side of NNTP (RFC 3977) used to
// pull group lists and overview data from an upstream news server.
//
// The protocol is strictly lock-step, so the client serializes commands
// with a mutex instead of pipelining. Multi-line responses are consumed
// through textproto dot-block readers.
package nntp

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"newsdb/pkg/models"
)

// Client is a single NNTP connection. All methods are safe for
// concurrent use; commands run one at a time.
type Client struct {
	conn net.Conn
	text *textproto.Conn
	opts *Options

	mu sync.Mutex
	// canPost reflects the greeting (200 vs 201), updated by MODE READER
	canPost bool
	// overCmd is pinned to OVER or XOVER after the first probe
	overCmd string
}

// New creates a Client from an existing connection, reads the server
// greeting, switches to reader mode and authenticates when credentials
// were supplied.
func New(conn net.Conn, opts ...Option) (*Client, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	c := &Client{
		conn: conn,
		text: textproto.NewConn(conn),
		opts: options,
	}

	_ = conn.SetDeadline(time.Now().Add(options.Timeout))
	code, msg, err := c.text.ReadCodeLine(20)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading greeting: %w", mapError(err))
	}
	c.canPost = code == 200
	c.logRecv(code, msg)

	// Transit servers hand the session over to the reader daemon here;
	// a 500-class refusal just means the server is already in reader mode.
	if code, _, err := c.cmd(context.Background(), 0, "MODE READER"); err == nil && (code == 200 || code == 201) {
		c.canPost = code == 200
	} else if err != nil {
		conn.Close()
		return nil, fmt.Errorf("mode reader: %w", err)
	}

	if options.User != "" {
		if err := c.Authenticate(options.User, options.Pass); err != nil {
			conn.Close()
			return nil, err
		}
	}
	_ = conn.SetDeadline(time.Time{})
	return c, nil
}

// Dial connects to an NNTP server at the given address.
func Dial(addr string, opts ...Option) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return New(conn, opts...)
}

// DialTLS connects to an NNTP server using TLS (conventionally port 563).
func DialTLS(addr string, opts ...Option) (*Client, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	conn, err := tls.Dial("tcp", addr, options.TLSConfig)
	if err != nil {
		return nil, fmt.Errorf("dial TLS: %w", err)
	}
	return New(conn, opts...)
}

// CanPost reports whether the server advertised posting permission.
func (c *Client) CanPost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canPost
}

// cmd sends one command line and reads the status line. Callers must
// hold c.mu. An expect of 0 disables status checking so callers can
// branch on the code themselves.
func (c *Client) cmd(ctx context.Context, expect int, format string, args ...any) (int, string, error) {
	if err := ctx.Err(); err != nil {
		return 0, "", err
	}
	_ = c.conn.SetDeadline(c.stamp(ctx))
	c.logSend(fmt.Sprintf(format, args...))
	if err := c.text.PrintfLine(format, args...); err != nil {
		return 0, "", err
	}
	code, msg, err := c.text.ReadCodeLine(expect)
	if err != nil {
		return code, msg, mapError(err)
	}
	c.logRecv(code, msg)
	return code, msg, nil
}

// stamp picks the earlier of the option timeout and the context deadline.
func (c *Client) stamp(ctx context.Context) time.Time {
	d := time.Now().Add(c.opts.Timeout)
	if t, ok := ctx.Deadline(); ok && t.Before(d) {
		d = t
	}
	return d
}

func (c *Client) logSend(line string) {
	if c.opts.Logger == nil {
		return
	}
	if strings.HasPrefix(line, "AUTHINFO PASS") {
		line = "AUTHINFO PASS ******"
	}
	c.opts.Logger.Debug("nntp_send", "line", line)
}

func (c *Client) logRecv(code int, msg string) {
	if c.opts.Logger == nil {
		return
	}
	c.opts.Logger.Debug("nntp_recv", "code", code, "msg", msg)
}

// Authenticate runs the AUTHINFO USER/PASS exchange.
func (c *Client) Authenticate(user, pass string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	code, _, err := c.cmd(context.Background(), 0, "AUTHINFO USER %s", user)
	if err != nil {
		return err
	}
	switch code {
	case 281:
		return nil
	case 381:
		// password requested
	default:
		return fmt.Errorf("%w: authinfo user answered %d", ErrAuthRejected, code)
	}
	code, msg, err := c.cmd(context.Background(), 0, "AUTHINFO PASS %s", pass)
	if err != nil {
		return err
	}
	if code != 281 {
		return fmt.Errorf("%w: %s", ErrAuthRejected, msg)
	}
	return nil
}

// Group selects a newsgroup and returns the server's watermarks.
func (c *Client) Group(ctx context.Context, name string) (models.Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var g models.Group
	_, msg, err := c.cmd(ctx, 211, "GROUP %s", name)
	if err != nil {
		return g, err
	}
	// 211 count low high name
	fields := strings.Fields(msg)
	if len(fields) < 4 {
		return g, fmt.Errorf("nntp: malformed GROUP response %q", msg)
	}
	g.Count, _ = strconv.ParseInt(fields[0], 10, 64)
	g.Low, _ = strconv.ParseInt(fields[1], 10, 64)
	g.High, _ = strconv.ParseInt(fields[2], 10, 64)
	g.Name = fields[3]
	g.Posting = c.canPost
	return g, nil
}

// Stat asks for an article's number and message-id without transferring
// it. spec is a message-id in angle brackets, an article number, or
// empty for the current article.
func (c *Client) Stat(ctx context.Context, spec string) (int64, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, msg, err := c.statLine(ctx, spec)
	if err != nil {
		return 0, "", err
	}
	fields := strings.Fields(msg)
	if len(fields) < 2 {
		return 0, "", fmt.Errorf("nntp: malformed STAT response %q", msg)
	}
	n, _ := strconv.ParseInt(fields[0], 10, 64)
	return n, fields[1], nil
}

func (c *Client) statLine(ctx context.Context, spec string) (int, string, error) {
	if spec == "" {
		return c.cmd(ctx, 223, "STAT")
	}
	return c.cmd(ctx, 223, "STAT %s", spec)
}

// Head returns an article's parsed headers.
func (c *Client) Head(ctx context.Context, spec string) (textproto.MIMEHeader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if spec == "" {
		_, _, err := c.cmd(ctx, 221, "HEAD")
		if err != nil {
			return nil, err
		}
	} else if _, _, err := c.cmd(ctx, 221, "HEAD %s", spec); err != nil {
		return nil, err
	}
	dot := c.text.DotReader()
	hdr, err := readHeader(dot)
	if err != nil {
		return nil, err
	}
	// drain what the header parser left so the connection stays in sync
	_, _ = io.Copy(io.Discard, dot)
	return hdr, nil
}

// Body returns an article's raw body.
func (c *Client) Body(ctx context.Context, spec string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if spec == "" {
		_, _, err := c.cmd(ctx, 222, "BODY")
		if err != nil {
			return nil, err
		}
	} else if _, _, err := c.cmd(ctx, 222, "BODY %s", spec); err != nil {
		return nil, err
	}
	return io.ReadAll(c.text.DotReader())
}

// Article returns an article's parsed headers and raw body.
func (c *Client) Article(ctx context.Context, spec string) (textproto.MIMEHeader, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if spec == "" {
		_, _, err := c.cmd(ctx, 220, "ARTICLE")
		if err != nil {
			return nil, nil, err
		}
	} else if _, _, err := c.cmd(ctx, 220, "ARTICLE %s", spec); err != nil {
		return nil, nil, err
	}
	br := bufio.NewReader(c.text.DotReader())
	hdr, err := textproto.NewReader(br).ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, nil, err
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return nil, nil, err
	}
	return hdr, body, nil
}

// Post transfers an article to the server. The reader supplies the full
// article, headers and body; dot-stuffing is handled here.
func (c *Client) Post(ctx context.Context, r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, _, err := c.cmd(ctx, 340, "POST"); err != nil {
		return err
	}
	w := c.text.DotWriter()
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	_ = c.conn.SetDeadline(c.stamp(ctx))
	code, msg, err := c.text.ReadCodeLine(240)
	if err != nil {
		return mapError(err)
	}
	c.logRecv(code, msg)
	return nil
}

// Date returns the server's clock in UTC.
func (c *Client) Date(ctx context.Context) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, msg, err := c.cmd(ctx, 111, "DATE")
	if err != nil {
		return time.Time{}, err
	}
	fields := strings.Fields(msg)
	stamp := msg
	if len(fields) > 0 {
		stamp = fields[len(fields)-1]
	}
	return time.ParseInLocation("20060102150405", stamp, time.UTC)
}

// Quit sends QUIT and closes the connection.
func (c *Client) Quit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _, _ = c.cmd(context.Background(), 0, "QUIT")
	return c.text.Close()
}

// Close drops the connection without the QUIT exchange.
func (c *Client) Close() error {
	return c.text.Close()
}

// readHeader parses a HEAD dot-block, tolerating the missing blank line
// some servers omit after the last header.
func readHeader(r io.Reader) (textproto.MIMEHeader, error) {
	tr := textproto.NewReader(bufio.NewReader(r))
	hdr, err := tr.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, err
	}
	return hdr, nil
}
