package notify

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Templates(t *testing.T) {
	subject, body, err := Render(TemplateSignupVerification, map[string]string{
		"userEmail":       "a@x.com",
		"verificationUrl": "http://fe/verify?verificationToken=abc.def",
	})
	require.NoError(t, err)
	assert.Equal(t, "Verify your email", subject)
	assert.Contains(t, body, "http://fe/verify?verificationToken=abc.def")
	assert.Contains(t, body, "a@x.com")

	subject, body, err = Render(TemplateForgotPassword, map[string]string{"passwordResetUrl": "http://fe/password-reset?passwordResetToken=t"})
	require.NoError(t, err)
	assert.Equal(t, "Password reset request received", subject)
	assert.Contains(t, body, "passwordResetToken=t")

	_, _, err = Render("nope", nil)
	require.Error(t, err)
}

func TestLogNotifier_AlwaysAccepts(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	ok, err := NewLogNotifier(log).Send(context.Background(), "a@x.com", TemplateForgotPassword, map[string]string{"passwordResetUrl": "u"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, buf.String(), `"template":"forgot-password"`)

	_, err = NewLogNotifier(log).Send(context.Background(), "a@x.com", "nope", nil)
	require.Error(t, err)
}

// fakeRelay speaks just enough SMTP for one delivery and reports the DATA
// payload on got. rcptCode is the reply to RCPT TO.
func fakeRelay(t *testing.T, conn net.Conn, rcptCode int, got chan<- string) {
	t.Helper()
	go func() {
		defer conn.Close()
		tc := textproto.NewConn(conn)

		_ = tc.PrintfLine("220 localhost ESMTP")
		for {
			line, err := tc.ReadLine()
			if err != nil {
				return
			}
			verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
			switch {
			case verb == "EHLO":
				_ = tc.PrintfLine("250-localhost")
				_ = tc.PrintfLine("250 8BITMIME")
			case strings.HasPrefix(line, "MAIL FROM:"):
				_ = tc.PrintfLine("250 ok")
			case strings.HasPrefix(line, "RCPT TO:"):
				if rcptCode != 250 {
					_ = tc.PrintfLine("%d mailbox unavailable", rcptCode)
					continue
				}
				_ = tc.PrintfLine("250 ok")
			case verb == "DATA":
				_ = tc.PrintfLine("354 go ahead")
				lines, err := tc.ReadDotLines()
				if err != nil {
					return
				}
				got <- strings.Join(lines, "\n")
				_ = tc.PrintfLine("250 queued")
			case verb == "QUIT":
				_ = tc.PrintfLine("221 bye")
				return
			default:
				_ = tc.PrintfLine("502 not implemented")
			}
		}
	}()
}

func newTestNotifier(t *testing.T, rcptCode int, got chan<- string) *SMTPNotifier {
	t.Helper()
	n, err := NewSMTPNotifier(SMTPConfig{Host: "localhost", Port: 2525, From: "Jules <jules@therooftop.nyc>"})
	require.NoError(t, err)

	n.now = func() time.Time { return time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC) }
	n.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		client, server := net.Pipe()
		fakeRelay(t, server, rcptCode, got)
		return client, nil
	}
	return n
}

func TestSMTPNotifier_Delivers(t *testing.T) {
	got := make(chan string, 1)
	n := newTestNotifier(t, 250, got)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := n.Send(ctx, "a@x.com", TemplateSignupVerification, map[string]string{
		"userEmail": "a@x.com", "verificationUrl": "http://fe/verify?verificationToken=tok",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	msg := <-got
	assert.Contains(t, msg, `From: "Jules" <jules@therooftop.nyc>`)
	assert.Contains(t, msg, "To: <a@x.com>")
	assert.Contains(t, msg, "Subject: Verify your email")
	assert.Contains(t, msg, "verificationToken=tok")
}

func TestSMTPNotifier_PermanentRejectIsNotAccepted(t *testing.T) {
	n := newTestNotifier(t, 550, make(chan string, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := n.Send(ctx, "a@x.com", TemplateForgotPassword, map[string]string{"passwordResetUrl": "u"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSMTPNotifier_TransientFailureIsError(t *testing.T) {
	n := newTestNotifier(t, 451, make(chan string, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := n.Send(ctx, "a@x.com", TemplateForgotPassword, map[string]string{"passwordResetUrl": "u"})
	require.Error(t, err)
	assert.False(t, ok)
}

func TestNewSMTPNotifier_BadSender(t *testing.T) {
	_, err := NewSMTPNotifier(SMTPConfig{Host: "h", Port: 465, From: "not an address"})
	require.Error(t, err)
}
