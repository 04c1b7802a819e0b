// Package notify implements the notification collaborator used by the
// service layer. Notifications are fire-and-forget from the caller's
// perspective: services log a failure and move on, they never roll back the
// mutation that triggered the message.
//
// The built-in EmailNotifier is queue-based: Send enqueues, Flush drains.
// A real delivery backend can replace it behind the Notifier interface
// without touching any service.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Notifier accepts a recipient address, a subject, and a body, and queues
// or sends the message. Callers never inspect the result beyond logging.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Email is a single queued message.
type Email struct {
	Recipient string
	Subject   string
	Body      string
	QueuedAt  time.Time
}

// EmailNotifier is an in-process queueing Notifier. It is safe for
// concurrent use.
type EmailNotifier struct {
	mu    sync.Mutex
	queue []Email
}

// NewEmailNotifier returns an empty notifier queue.
func NewEmailNotifier() *EmailNotifier {
	return &EmailNotifier{}
}

// Send enqueues a message for later delivery.
func (n *EmailNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queue = append(n.queue, Email{
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		QueuedAt:  time.Now().UTC(),
	})
	log.Info().Str("recipient", recipient).Str("subject", subject).Msg("email queued")
	return nil
}

// Flush drains the queue, "delivering" each message to the log, and
// returns the number of messages processed.
func (n *EmailNotifier) Flush(ctx context.Context) int {
	n.mu.Lock()
	drained := n.queue
	n.queue = nil
	n.mu.Unlock()

	for _, e := range drained {
		log.Info().Str("recipient", e.Recipient).Str("subject", e.Subject).Msg("email sent")
	}
	return len(drained)
}

// Pending returns the number of queued messages.
func (n *EmailNotifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queue)
}

// amountPrinter renders monetary amounts with English digit grouping
// ("1,234.50") for notification bodies.
var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders a monetary amount for human-facing message bodies.
func FormatAmount(amount float64) string {
	return amountPrinter.Sprintf("$%.2f", amount)
}

// Welcome builds the registration notification.
func Welcome(name string) (subject, body string) {
	return "Welcome!", fmt.Sprintf("Welcome %s! Your account has been created.", name)
}

// ProfileUpdated builds the profile-change notification.
func ProfileUpdated() (subject, body string) {
	return "Profile Updated", "Your profile has been updated with new information."
}

// Farewell builds the account-deletion notification.
func Farewell(name string) (subject, body string) {
	return "Account Deleted", fmt.Sprintf("We're sad to see you go, %s!", name)
}

// PaymentReceipt builds the payment confirmation notification.
func PaymentReceipt(reference string, amount float64) (subject, body string) {
	return "Payment Received",
		fmt.Sprintf("Your payment %s of %s has been processed.", reference, FormatAmount(amount))
}
