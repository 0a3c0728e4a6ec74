package notifier

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	config "github.com/NordCoder/Tubely/internal/config/subscription-notifier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveOnce speaks just enough SMTP to accept one message and returns its DATA.
func serveOnce(t *testing.T, ln net.Listener) <-chan string {
	t.Helper()
	out := make(chan string, 1)
	go func() {
		defer close(out)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		write("220 test ready")
		var data strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					write("250 queued")
					continue
				}
				data.WriteString(line)
				continue
			}
			switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				write("250 test")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				write("250 ok")
			case cmd == "DATA":
				inData = true
				write("354 go ahead")
			case cmd == "QUIT":
				write("221 bye")
				out <- data.String()
				return
			default:
				write("502 unsupported")
			}
		}
	}()
	return out
}

func TestMailerSend(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	got := serveOnce(t, ln)

	m := NewMailer(config.SMTP{
		Addr:       ln.Addr().String(),
		From:       "noreply@tubely.dev",
		Timeout:    2 * time.Second,
		SubjPrefix: "[Tubely]",
	})
	require.NoError(t, m.Send(context.Background(), "chef@example.com", "New subscriber: @ann", "hi"))

	select {
	case data := <-got:
		assert.Contains(t, data, "To: chef@example.com\r\n")
		assert.Contains(t, data, "Subject: [Tubely] New subscriber: @ann\r\n")
		assert.Contains(t, data, "\r\n\r\nhi\r\n")
	case <-time.After(2 * time.Second):
		t.Fatal("smtp server saw no message")
	}
}

func TestMailerDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	m := NewMailer(config.SMTP{Addr: addr, From: "a@b.c", Timeout: time.Second})
	assert.Error(t, m.Send(context.Background(), "x@y.z", "s", "b"))
}

func TestHost(t *testing.T) {
	assert.Equal(t, "smtp.example.com", host("smtp.example.com:587"))
	assert.Equal(t, "smtp.example.com", host("smtp.example.com"))
}
