package mailer

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// Mailer sends the due-date reminder mail. It satisfies service.Notifier.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func New(host string, port int, username, password string) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   username,
	}
}

// NewFromEnv builds a mailer from BOOK_MANAGER_EMAIL / BOOK_MANAGER_PASSWD
// and the SMTP_HOST / SMTP_PORT pair (gmail defaults).
func NewFromEnv() *Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "smtp.gmail.com"
	}
	port := 587
	if p, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil {
		port = p
	}
	return New(host, port, os.Getenv("BOOK_MANAGER_EMAIL"), os.Getenv("BOOK_MANAGER_PASSWD"))
}

// Send mails the return reminder for bookTitle to recipient. gomail dials
// synchronously, so the send runs in a goroutine and the caller's context
// bounds the wait; a timed-out send keeps going in the background and its
// result is discarded.
func (m *Mailer) Send(ctx context.Context, recipient, bookTitle string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", "Christian Fellowship Book Return Due")
	msg.SetBody("text/plain", fmt.Sprintf("Please return the %s book by tomorrow.", bookTitle))

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail to %s: %w", recipient, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send mail to %s: %w", recipient, ctx.Err())
	}
}
