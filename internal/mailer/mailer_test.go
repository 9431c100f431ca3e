package mailer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/allstonrat/eventdigest/internal/digest"
)

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

var testMessage = digest.Message{
	From:    "Allston Rat Citizens",
	Subject: "Allston Rat City Weekly Digest (6/4)",
	Body:    "Upcoming events on the Allston Rat City Calendar:\n\n6/4\tYard Sale\t\n\nfooter",
}

func testSettings() Settings {
	return Settings{
		Username:   "ratcity",
		Password:   "secret",
		Recipients: []string{"a@example.com", "b@example.com"},
	}
}

func TestSenderAddress(t *testing.T) {
	assert.Equal(t, "ratcity@gmail.com", SenderAddress("ratcity"))
}

func TestNew_Defaults(t *testing.T) {
	m, err := New(testSettings())
	require.NoError(t, err)
	assert.Equal(t, DefaultHost, m.settings.Host)
	assert.Equal(t, DefaultPort, m.settings.Port)
	assert.IsType(t, &mail.Client{}, m.sender)
}

func TestSend(t *testing.T) {
	sender := &fakeSender{}
	m, err := New(testSettings(), WithSender(sender))
	require.NoError(t, err)

	require.NoError(t, m.Send(context.Background(), testMessage))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, rcpts)

	from, err := msg.GetSender(false)
	require.NoError(t, err)
	assert.Equal(t, "ratcity@gmail.com", from)

	assert.Equal(t, []string{testMessage.Subject}, msg.GetGenHeader(mail.HeaderSubject))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Allston Rat Citizens")
	assert.Contains(t, buf.String(), "text/plain")
	assert.Contains(t, buf.String(), "Yard Sale")
}

func TestSend_NoRecipients(t *testing.T) {
	sender := &fakeSender{}
	settings := testSettings()
	settings.Recipients = nil
	m, err := New(settings, WithSender(sender))
	require.NoError(t, err)

	assert.Error(t, m.Send(context.Background(), testMessage))
	assert.Empty(t, sender.sent)
}

func TestSend_InvalidRecipient(t *testing.T) {
	settings := testSettings()
	settings.Recipients = []string{"not an address"}
	m, err := New(settings, WithSender(&fakeSender{}))
	require.NoError(t, err)

	assert.Error(t, m.Send(context.Background(), testMessage))
}

func TestSend_TransportError(t *testing.T) {
	boom := errors.New("535 authentication failed")
	m, err := New(testSettings(), WithSender(&fakeSender{err: boom}))
	require.NoError(t, err)

	err = m.Send(context.Background(), testMessage)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "smtp.gmail.com:587")
}

// plainSMTPServer accepts connections and answers like a mail server that
// offers neither STARTTLS nor any other extension besides AUTH.
type plainSMTPServer struct {
	listener net.Listener

	mu       sync.Mutex
	commands []string
}

func newPlainSMTPServer(t *testing.T) *plainSMTPServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &plainSMTPServer{listener: listener}
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go srv.serve(conn)
		}
	}()
	return srv
}

func (s *plainSMTPServer) serve(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	w := bufio.NewWriter(conn)
	reply := func(lines ...string) {
		for _, line := range lines {
			_, _ = w.WriteString(line + "\r\n")
		}
		_ = w.Flush()
	}

	reply("220 localhost ESMTP")
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.Fields(strings.TrimSpace(line) + " x")[0])
		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		s.mu.Unlock()

		switch cmd {
		case "EHLO":
			reply("250-localhost", "250 AUTH PLAIN")
		case "HELO", "NOOP", "RSET":
			reply("250 OK")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

func (s *plainSMTPServer) port(t *testing.T) int {
	t.Helper()
	addr, ok := s.listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return addr.Port
}

func (s *plainSMTPServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func TestSend_RequiresStartTLS(t *testing.T) {
	srv := newPlainSMTPServer(t)
	settings := testSettings()
	settings.Host = "127.0.0.1"
	settings.Port = srv.port(t)

	m, err := New(settings)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = m.Send(ctx, testMessage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1")

	commands := srv.received()
	assert.Contains(t, commands, "EHLO")
	assert.NotContains(t, commands, "AUTH", "credentials must not be sent in the clear")
	assert.NotContains(t, commands, "MAIL")
	assert.NotContains(t, commands, "DATA")
}
