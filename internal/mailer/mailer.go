// Package mailer delivers password reset links.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

const resetSubject = "Cadastrar nova senha"

var resetHTML = template.Must(template.New("reset").Parse(`<div style="font-family: Arial, Helvetica, sans-serif; line-height:1.5; color:#111; max-width:560px">
  <h2 style="margin:0 0 12px">Cadastrar nova senha</h2>
  <p>Recebemos uma solicitação para cadastrar uma nova senha.</p>
  <p style="margin:20px 0"><a href="{{.}}" style="display:inline-block;padding:12px 18px;border-radius:6px;background:#2563eb;color:#fff;text-decoration:none">Cadastrar nova senha</a></p>
  <p>Se o botão não funcionar, copie e cole este link no navegador:</p>
  <p style="word-break:break-all"><a href="{{.}}">{{.}}</a></p>
  <p style="color:#555;font-size:13px">Se você não solicitou, pode ignorar esta mensagem.</p>
</div>`))

// Log only records the link. Used when SMTP is not configured.
type Log struct {
	Logger *slog.Logger
}

func (l Log) SendPasswordReset(_ context.Context, to, link string) error {
	log := l.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("smtp not configured, reset link", "to", to, "link", link)
	return nil
}

type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func (s SMTP) SendPasswordReset(ctx context.Context, to, link string) error {
	msg, err := buildResetMessage(s.From, to, link, time.Now())
	if err != nil {
		return err
	}
	from, err := mail.ParseAddress(s.From)
	if err != nil {
		return fmt.Errorf("parse MAIL_FROM: %w", err)
	}

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Password, s.Host)
	}
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))

	done := make(chan error, 1)
	go func() { done <- smtp.SendMail(addr, auth, from.Address, []string{to}, msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send reset mail to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildResetMessage(from, to, link string, now time.Time) ([]byte, error) {
	var html bytes.Buffer
	if err := resetHTML.Execute(&html, link); err != nil {
		return nil, err
	}
	text := "Para cadastrar uma nova senha, acesse: " + link + "\r\n\r\nSe você não solicitou, ignore este e-mail."

	const boundary = "kogma-reset-boundary"
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", resetSubject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=" + boundary + "\r\n\r\n")
	b.WriteString("--" + boundary + "\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(text + "\r\n")
	b.WriteString("--" + boundary + "\r\nContent-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(html.String() + "\r\n")
	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String()), nil
}
