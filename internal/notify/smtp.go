package notify

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"eventhub/pkg/utils"
)

type smtpSender struct {
	host     string
	port     int
	from     string
	username string
	password string
}

func NewSMTPSender(cfg utils.EmailConfig) Sender {
	return &smtpSender{
		host:     cfg.Host,
		port:     cfg.Port,
		from:     cfg.From,
		username: cfg.User,
		password: cfg.Password,
	}
}

func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw := buildMessage(s.from, msg)
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if err := smtp.SendMail(addr, auth, s.from, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// buildMessage renders msg as an RFC 5322 message. Header values are kept on
// one line and a non-ASCII subject is Q-encoded.
func buildMessage(from string, msg Message) []byte {
	subject := mime.QEncoding.Encode("utf-8", headerBreaks.Replace(msg.Subject))

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", headerBreaks.Replace(from))
	fmt.Fprintf(&b, "To: %s\r\n", headerBreaks.Replace(msg.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}
