package notifications

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"sort"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"taquilla/internal/domain"
	"taquilla/pkg/logger"
)

// EmailService delivers the ticket email of a completed order
type EmailService interface {
	SendOrderConfirmation(ctx context.Context, msg *OrderCompletedMessage) error
}

// SMTPConfig holds SMTP configuration
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	UseTLS    bool
}

func validateSMTPConfig(config *SMTPConfig) error {
	if config == nil {
		return fmt.Errorf("SMTP config is nil")
	}
	if config.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("SMTP port must be between 1 and 65535")
	}
	if config.FromEmail == "" {
		return fmt.Errorf("from email is required")
	}
	return nil
}

// SMTPEmailService sends ticket emails over SMTP with STARTTLS
type SMTPEmailService struct {
	config *SMTPConfig
	log    *logger.Logger
}

func NewSMTPEmailService(config *SMTPConfig, log *logger.Logger) (*SMTPEmailService, error) {
	if err := validateSMTPConfig(config); err != nil {
		return nil, fmt.Errorf("invalid SMTP configuration: %w", err)
	}
	return &SMTPEmailService{config: config, log: log}, nil
}

func (s *SMTPEmailService) SendOrderConfirmation(ctx context.Context, msg *OrderCompletedMessage) error {
	htmlBody, textBody, err := renderTicketEmail(msg)
	if err != nil {
		return fmt.Errorf("failed to generate email content: %w", err)
	}

	message := buildMessage(s.config.FromName, s.config.FromEmail, msg.Buyer.Email, ticketSubject(msg), htmlBody, textBody, time.Now())
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	if s.config.UseTLS {
		err = s.sendWithSTARTTLS(addr, auth, msg.Buyer.Email, message)
	} else {
		err = smtp.SendMail(addr, auth, s.config.FromEmail, []string{msg.Buyer.Email}, message)
	}
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.InfoContext(ctx, "Ticket email sent", "order_id", msg.OrderID.String(), "to", msg.Buyer.Email)
	return nil
}

func (s *SMTPEmailService) sendWithSTARTTLS(addr string, auth smtp.Auth, to string, message []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Quit()

	if err = client.StartTLS(&tls.Config{ServerName: s.config.Host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}
	if err = client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return w.Close()
}

// buildMessage creates a multipart/alternative message with stable header order
func buildMessage(fromName, fromEmail, to, subject, htmlBody, textBody string, now time.Time) []byte {
	boundary := "boundary_" + strconv.FormatInt(now.UnixNano(), 10)
	headers := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", fromName, fromEmail),
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Date":         now.Format(time.RFC1123Z),
		"Content-Type": fmt.Sprintf("multipart/alternative; boundary=%s", boundary),
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, headers[k])
	}
	b.WriteString("\r\n")

	if textBody != "" {
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, textBody)
	}
	if htmlBody != "" {
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, htmlBody)
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

func ticketSubject(msg *OrderCompletedMessage) string {
	return fmt.Sprintf("Your tickets - order %s", shortID(msg.OrderID.String()))
}

type ticketLine struct {
	Description string
}

type ticketView struct {
	Name    string
	OrderID string
	Lines   []ticketLine
	Tickets int
	Total   string
}

var (
	ticketHTML = template.Must(template.New("html").Parse(`<h2>Your tickets are ready</h2>
<p>Hi {{.Name}},</p>
<p>Order <strong>{{.OrderID}}</strong> is confirmed: {{.Tickets}} ticket(s), {{.Total}}.</p>
<ul>{{range .Lines}}<li>{{.Description}}</li>{{end}}</ul>
<p>Show this email at the door.</p>`))

	ticketText = texttemplate.Must(texttemplate.New("text").Parse(`Hi {{.Name}},

Order {{.OrderID}} is confirmed: {{.Tickets}} ticket(s), {{.Total}}.
{{range .Lines}}
- {{.Description}}{{end}}

Show this email at the door.
`))
)

func renderTicketEmail(msg *OrderCompletedMessage) (string, string, error) {
	view := ticketView{
		Name:    msg.Buyer.Name,
		OrderID: msg.OrderID.String(),
		Tickets: msg.TicketCount(),
		Total:   FormatMoney(msg.Total, msg.Currency),
	}
	for _, l := range msg.Lines {
		switch v := l.(type) {
		case domain.GeneralLine:
			view.Lines = append(view.Lines, ticketLine{Description: fmt.Sprintf("%d x general admission (tier %s)", v.Quantity, shortID(v.TierID.String()))})
		case domain.SeatLine:
			view.Lines = append(view.Lines, ticketLine{Description: "seat " + shortID(v.SeatID.String())})
		}
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := ticketHTML.Execute(&htmlBuf, view); err != nil {
		return "", "", err
	}
	if err := ticketText.Execute(&textBuf, view); err != nil {
		return "", "", err
	}
	return htmlBuf.String(), textBuf.String(), nil
}

// FormatMoney renders minor units, 10000 NIO -> "100.00 NIO"
func FormatMoney(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, currency)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// LogEmailService logs instead of sending; used when SMTP is not configured
type LogEmailService struct {
	log *logger.Logger
}

func NewLogEmailService(log *logger.Logger) *LogEmailService {
	return &LogEmailService{log: log}
}

func (s *LogEmailService) SendOrderConfirmation(ctx context.Context, msg *OrderCompletedMessage) error {
	s.log.InfoContext(ctx, "Ticket email (not sent, SMTP disabled)",
		"order_id", msg.OrderID.String(),
		"to", msg.Buyer.Email,
		"subject", ticketSubject(msg),
	)
	return nil
}
