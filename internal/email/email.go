// Package email sends notification mail over SMTP. Delivery is best-effort
// everywhere it is used: callers log failures and never fail the request
// that triggered the notification.
package email

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"os"
	"time"

	"github.com/NotJalaAl00/Flint/pkg/logkey"
)

type Conf struct {
	host     string
	port     string
	user     string
	pass     string
	fromAddr string
	fromName string

	dialTimeout time.Duration
}

func NewConf() (*Conf, error) {
	c := &Conf{
		host:        os.Getenv("SMTP_SERVER"),
		port:        os.Getenv("SMTP_PORT"),
		user:        os.Getenv("SMTP_USER"),
		pass:        os.Getenv("SMTP_PASS"),
		fromAddr:    os.Getenv("FROM_ADDR"),
		fromName:    os.Getenv("FROM_NAME"),
		dialTimeout: 10 * time.Second,
	}
	if c.host == "" || c.port == "" || c.user == "" || c.pass == "" || c.fromAddr == "" {
		return nil, fmt.Errorf("missing required SMTP environment variables (SMTP_SERVER, SMTP_PORT, SMTP_USER, SMTP_PASS, FROM_ADDR)")
	}
	return c, nil
}

// Send delivers one message, retrying once on failure. The mail transport is
// best-effort; callers decide whether the error matters.
func (c *Conf) Send(to, subject, body string) error {
	err := c.sendOnce(to, subject, body)
	if err == nil {
		return nil
	}
	slog.Warn("mail send failed, retrying once", slog.String(logkey.ERROR, err.Error()))
	if err := c.sendOnce(to, subject, body); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

func (c *Conf) sendOnce(to, subject, body string) error {
	addr := net.JoinHostPort(c.host, c.port)
	conn, err := net.DialTimeout("tcp", addr, c.dialTimeout)
	if err != nil {
		return err
	}
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: c.host}); err != nil {
			return err
		}
	}
	if err := client.Auth(smtp.PlainAuth("", c.user, c.pass, c.host)); err != nil {
		return err
	}
	if err := client.Mail(c.fromAddr); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("From: %s <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n"+
		"%s", c.fromName, c.fromAddr, to, subject, body)
	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
