// Package notify sends transactional e-mail to customers. Dispatch is
// fire-and-forget: callers enqueue through the job queue and never block on
// SMTP.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Mailer sends mail over plain SMTP (Mailpit locally, relay in production).
type Mailer struct {
	addr    string
	from    string
	printer *message.Printer
}

// NewMailer constructs a mailer.
func NewMailer(host string, port int, from string) *Mailer {
	return &Mailer{
		addr:    fmt.Sprintf("%s:%d", host, port),
		from:    from,
		printer: message.NewPrinter(language.MustParse("en-IN")),
	}
}

// FormatAmount renders a monetary amount with Indian digit grouping.
func (m *Mailer) FormatAmount(v float64) string {
	return m.printer.Sprintf("₹%.2f", v)
}

// SendInvoiceIssued mails the customer that an invoice was issued.
func (m *Mailer) SendInvoiceIssued(to, customerName, number string, total float64, dueDate, paymentLink string) error {
	body := fmt.Sprintf("Hello %s,\n\nInvoice %s for %s has been issued to you.",
		customerName, number, m.FormatAmount(total))
	if dueDate != "" {
		body += fmt.Sprintf(" Payment is due by %s.", dueDate)
	}
	if paymentLink != "" {
		body += fmt.Sprintf("\n\nPay online: %s", paymentLink)
	}
	body += "\n\nThank you."
	return m.send(to, fmt.Sprintf("Invoice %s issued", number), body)
}

// SendDunningReminder mails an escalating reminder for an overdue invoice.
func (m *Mailer) SendDunningReminder(to, customerName, number string, balance float64, daysOverdue int) error {
	subject := fmt.Sprintf("Reminder: invoice %s is overdue", number)
	if daysOverdue > 60 {
		subject = fmt.Sprintf("Final notice: invoice %s is %d days overdue", number, daysOverdue)
	}
	body := fmt.Sprintf("Hello %s,\n\nInvoice %s has an outstanding balance of %s and is %d days past due.\nPlease arrange payment at your earliest convenience.",
		customerName, number, m.FormatAmount(balance), daysOverdue)
	return m.send(to, subject, body)
}

func (m *Mailer) send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg))
}
