package nntp_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"newsdb/pkg/nntp"
)

// fake speaks the server side of one scripted session over net.Pipe.
type fake struct {
	mu   sync.Mutex
	cmds []string
}

func (f *fake) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.cmds))
	copy(out, f.cmds)
	return out
}

// dialFake starts a goroutine answering with greeting plus MODE READER,
// then hands every other command line to handle. handle returns false to
// hang up.
func dialFake(t *testing.T, greeting string, handle func(cmd string, text *textproto.Conn) bool, opts ...nntp.Option) (*nntp.Client, *fake) {
	t.Helper()
	f := &fake{}
	cliConn, srvConn := net.Pipe()
	go func() {
		text := textproto.NewConn(srvConn)
		defer text.Close()
		if err := text.PrintfLine("%s", greeting); err != nil {
			return
		}
		for {
			line, err := text.ReadLine()
			if err != nil {
				return
			}
			f.mu.Lock()
			f.cmds = append(f.cmds, line)
			f.mu.Unlock()
			switch {
			case line == "MODE READER":
				if err := text.PrintfLine("%s", greeting); err != nil {
					return
				}
			case line == "QUIT":
				_ = text.PrintfLine("205 closing connection")
				return
			default:
				if !handle(line, text) {
					return
				}
			}
		}
	}()

	quiet := append([]nntp.Option{
		nntp.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		nntp.WithTimeout(5 * time.Second),
	}, opts...)
	c, err := nntp.New(cliConn, quiet...)
	if err != nil {
		t.Fatalf("nntp.New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, f
}

func TestGroupSelect(t *testing.T) {
	c, _ := dialFake(t, "200 ready", func(cmd string, text *textproto.Conn) bool {
		if cmd != "GROUP comp.misc" {
			t.Errorf("unexpected command %q", cmd)
			return false
		}
		_ = text.PrintfLine("211 120 3 125 comp.misc")
		return true
	})
	g, err := c.Group(context.Background(), "comp.misc")
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if g.Name != "comp.misc" || g.Count != 120 || g.Low != 3 || g.High != 125 {
		t.Fatalf("group mismatch: %+v", g)
	}
	if !g.Posting {
		t.Fatalf("greeting 200 should permit posting")
	}
}

func TestGroupMissing(t *testing.T) {
	c, _ := dialFake(t, "200 ready", func(cmd string, text *textproto.Conn) bool {
		_ = text.PrintfLine("411 no such newsgroup")
		return true
	})
	_, err := c.Group(context.Background(), "alt.nowhere")
	if !errors.Is(err, nntp.ErrNoSuchGroup) {
		t.Fatalf("expected ErrNoSuchGroup; got %v", err)
	}
}

func TestNoPostingGreeting(t *testing.T) {
	c, _ := dialFake(t, "201 read-only service", func(cmd string, text *textproto.Conn) bool {
		return false
	})
	if c.CanPost() {
		t.Fatalf("greeting 201 must not advertise posting")
	}
}

func TestOverParsesRows(t *testing.T) {
	rows := "1\tHello\talice@example.org\tMon, 01 Jan 2024 10:00:00 +0000\t<m1@x>\t\t820\t12\n" +
		"2\tRe: Hello\tbob@example.org\tMon, 01 Jan 2024 11:00:00 +0000\t<m2@x>\t<m1@x>\t410\t6\n" +
		"garbled line without tabs\n" +
		"3\tother\tcarol@example.org\tMon, 01 Jan 2024 12:00:00 +0000\t<m3@x>\t<m1@x> <m2@x>\n"
	c, _ := dialFake(t, "200 ready", func(cmd string, text *textproto.Conn) bool {
		if !strings.HasPrefix(cmd, "OVER ") {
			t.Errorf("unexpected command %q", cmd)
			return false
		}
		_ = text.PrintfLine("224 overview follows")
		w := text.DotWriter()
		_, _ = io.WriteString(w, rows)
		_ = w.Close()
		return true
	})

	arts, err := c.Over(context.Background(), 1, 3)
	if err != nil {
		t.Fatalf("Over: %v", err)
	}
	if len(arts) != 3 {
		t.Fatalf("expected 3 rows (garbled one skipped); got %d", len(arts))
	}
	if arts[0].Number != 1 || arts[0].MessageID != "<m1@x>" || len(arts[0].Refs) != 0 {
		t.Fatalf("row 1 mismatch: %+v", arts[0])
	}
	if arts[1].Bytes != 410 || arts[1].Lines != 6 {
		t.Fatalf("row 2 sizes mismatch: %+v", arts[1])
	}
	if len(arts[1].Refs) != 1 || arts[1].Refs[0] != "<m1@x>" {
		t.Fatalf("row 2 refs mismatch: %v", arts[1].Refs)
	}
	// short row: bytes and lines absent
	if len(arts[2].Refs) != 2 || arts[2].Bytes != 0 {
		t.Fatalf("row 3 mismatch: %+v", arts[2])
	}
}

func TestOverFallsBackToXover(t *testing.T) {
	c, f := dialFake(t, "200 ready", func(cmd string, text *textproto.Conn) bool {
		switch {
		case strings.HasPrefix(cmd, "OVER "):
			_ = text.PrintfLine("500 command not recognized")
		case strings.HasPrefix(cmd, "XOVER "):
			_ = text.PrintfLine("224 overview follows")
			w := text.DotWriter()
			_, _ = io.WriteString(w, "1\ts\tf\td\t<m1@x>\t\n")
			_ = w.Close()
		default:
			t.Errorf("unexpected command %q", cmd)
			return false
		}
		return true
	})

	for i := 0; i < 2; i++ {
		arts, err := c.Over(context.Background(), 1, 1)
		if err != nil {
			t.Fatalf("Over call %d: %v", i, err)
		}
		if len(arts) != 1 {
			t.Fatalf("Over call %d: got %d rows", i, len(arts))
		}
	}
	var overs, xovers int
	for _, cmd := range f.seen() {
		if strings.HasPrefix(cmd, "OVER ") {
			overs++
		}
		if strings.HasPrefix(cmd, "XOVER ") {
			xovers++
		}
	}
	if overs != 1 || xovers != 2 {
		t.Fatalf("expected single OVER probe then XOVER only; got OVER=%d XOVER=%d", overs, xovers)
	}
}

func TestOverEmptyRange(t *testing.T) {
	c, _ := dialFake(t, "200 ready", func(cmd string, text *textproto.Conn) bool {
		_ = text.PrintfLine("423 no articles in that range")
		return true
	})
	arts, err := c.Over(context.Background(), 900, 999)
	if err != nil {
		t.Fatalf("empty range must not fail: %v", err)
	}
	if len(arts) != 0 {
		t.Fatalf("expected no rows; got %d", len(arts))
	}
}

func TestAuthenticateHandshake(t *testing.T) {
	_, f := dialFake(t, "200 ready", func(cmd string, text *textproto.Conn) bool {
		switch cmd {
		case "AUTHINFO USER reader":
			_ = text.PrintfLine("381 password required")
		case "AUTHINFO PASS hunter2":
			_ = text.PrintfLine("281 authentication accepted")
		default:
			t.Errorf("unexpected command %q", cmd)
			return false
		}
		return true
	}, nntp.WithAuth("reader", "hunter2"))

	want := []string{"MODE READER", "AUTHINFO USER reader", "AUTHINFO PASS hunter2"}
	got := f.seen()
	if len(got) != len(want) {
		t.Fatalf("handshake commands: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("handshake commands: %v", got)
		}
	}
}

func TestAuthenticateRejected(t *testing.T) {
	cliConn, srvConn := net.Pipe()
	go func() {
		text := textproto.NewConn(srvConn)
		defer text.Close()
		_ = text.PrintfLine("200 ready")
		for {
			line, err := text.ReadLine()
			if err != nil {
				return
			}
			switch {
			case line == "MODE READER":
				_ = text.PrintfLine("200 ready")
			case strings.HasPrefix(line, "AUTHINFO USER"):
				_ = text.PrintfLine("381 password required")
			case strings.HasPrefix(line, "AUTHINFO PASS"):
				_ = text.PrintfLine("481 authentication failed")
			default:
				return
			}
		}
	}()
	_, err := nntp.New(cliConn,
		nntp.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		nntp.WithTimeout(5*time.Second),
		nntp.WithAuth("reader", "wrong"))
	if !errors.Is(err, nntp.ErrAuthRejected) {
		t.Fatalf("expected ErrAuthRejected; got %v", err)
	}
}

func TestListActive(t *testing.T) {
	c, _ := dialFake(t, "200 ready", func(cmd string, text *textproto.Conn) bool {
		if cmd != "LIST ACTIVE comp.*" {
			t.Errorf("unexpected command %q", cmd)
			return false
		}
		_ = text.PrintfLine("215 list follows")
		w := text.DotWriter()
		_, _ = io.WriteString(w, "comp.misc 125 3 y\ncomp.moderated 90 1 m\n")
		_ = w.Close()
		return true
	})
	groups, err := c.ListActive(context.Background(), "comp.*")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups; got %d", len(groups))
	}
	if groups[0].Name != "comp.misc" || groups[0].High != 125 || groups[0].Low != 3 || !groups[0].Posting {
		t.Fatalf("group[0] mismatch: %+v", groups[0])
	}
	if groups[1].Posting {
		t.Fatalf("moderated group must not report open posting")
	}
}

func TestHeadParsesMIMEHeader(t *testing.T) {
	c, _ := dialFake(t, "200 ready", func(cmd string, text *textproto.Conn) bool {
		if cmd != "HEAD <m1@x>" {
			t.Errorf("unexpected command %q", cmd)
			return false
		}
		_ = text.PrintfLine("221 headers follow")
		w := text.DotWriter()
		_, _ = io.WriteString(w, "Subject: Threading questions\nFrom: alice@example.org\nMessage-ID: <m1@x>\n")
		_ = w.Close()
		return true
	})
	hdr, err := c.Head(context.Background(), "<m1@x>")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if got := hdr.Get("Subject"); got != "Threading questions" {
		t.Fatalf("Subject = %q", got)
	}
	if got := hdr.Get("Message-Id"); got != "<m1@x>" {
		t.Fatalf("Message-ID = %q", got)
	}
}

func TestPostRoundTrip(t *testing.T) {
	var posted string
	c, _ := dialFake(t, "200 ready", func(cmd string, text *textproto.Conn) bool {
		if cmd != "POST" {
			t.Errorf("unexpected command %q", cmd)
			return false
		}
		_ = text.PrintfLine("340 send article")
		b, err := text.ReadDotBytes()
		if err != nil {
			t.Errorf("reading posted article: %v", err)
			return false
		}
		posted = string(b)
		_ = text.PrintfLine("240 article received")
		return true
	})
	article := "From: alice@example.org\r\nSubject: hi\r\n\r\nbody text\r\n"
	if err := c.Post(context.Background(), strings.NewReader(article)); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if !strings.Contains(posted, "Subject: hi") || !strings.Contains(posted, "body text") {
		t.Fatalf("posted article mangled: %q", posted)
	}
}

func TestDate(t *testing.T) {
	c, _ := dialFake(t, "200 ready", func(cmd string, text *textproto.Conn) bool {
		_ = text.PrintfLine("111 20240102030405")
		return true
	})
	got, err := c.Date(context.Background())
	if err != nil {
		t.Fatalf("Date: %v", err)
	}
	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Date = %v; want %v", got, want)
	}
}
