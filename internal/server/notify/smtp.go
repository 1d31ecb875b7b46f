package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"
)

// implicitTLSPort is the SMTPS port, where TLS starts before the greeting.
const implicitTLSPort = 465

// SMTPConfig describes the outgoing relay.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	// From is an RFC 5322 address, e.g. "Jules <jules@therooftop.nyc>".
	From string
}

// SMTPNotifier delivers one message per connection.
type SMTPNotifier struct {
	cfg  SMTPConfig
	from *mail.Address
	dial func(ctx context.Context, addr string) (net.Conn, error)
	now  func() time.Time
}

var _ Notifier = (*SMTPNotifier)(nil)

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("notify: sender address: %w", err)
	}

	n := &SMTPNotifier{cfg: cfg, from: from, now: time.Now}
	n.dial = n.dialRelay
	return n, nil
}

func (n *SMTPNotifier) dialRelay(ctx context.Context, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: 10 * time.Second}
	if n.cfg.Port == implicitTLSPort {
		td := &tls.Dialer{NetDialer: d, Config: &tls.Config{ServerName: n.cfg.Host}}
		return td.DialContext(ctx, "tcp", addr)
	}
	return d.DialContext(ctx, "tcp", addr)
}

// Send renders templateID and hands it to the relay. A permanent (5xx)
// refusal is reported as accepted=false.
func (n *SMTPNotifier) Send(ctx context.Context, recipient, templateID string, vars map[string]string) (bool, error) {
	subject, body, err := Render(templateID, vars)
	if err != nil {
		return false, err
	}

	to, err := mail.ParseAddress(recipient)
	if err != nil {
		return false, nil
	}

	err = n.deliver(ctx, to.Address, n.message(to, subject, body))

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code >= 500 {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("notify: smtp: %w", err)
	}
	return true, nil
}

func (n *SMTPNotifier) deliver(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	conn, err := n.dial(ctx, addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if n.cfg.Port != implicitTLSPort {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
				return err
			}
		}
	}
	if n.cfg.User != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(n.from.Address); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (n *SMTPNotifier) message(to *mail.Address, subject, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", n.from.String())
	fmt.Fprintf(&b, "To: %s\r\n", to.String())
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", n.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.Bytes()
}
