package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/pkg/telegram"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slog"
)

// DefaultNotifyTimeout bounds a single outbound notification.
const DefaultNotifyTimeout = 10 * time.Second

// Compile-time check to ensure NotificationDispatcher implements PurchaseNotifier
var _ PurchaseNotifier = (*NotificationDispatcher)(nil)

// NotificationDispatcher sends best-effort admin notifications. Sends run in
// the background; a failure is logged and never reaches the caller.
type NotificationDispatcher struct {
	gateway telegram.Gateway
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewNotificationDispatcher(gateway telegram.Gateway, timeout time.Duration) *NotificationDispatcher {
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	return &NotificationDispatcher{gateway: gateway, timeout: timeout}
}

// PurchaseCompleted reports a committed purchase without blocking the caller.
func (d *NotificationDispatcher) PurchaseCompleted(purchase *models.Purchase, previousBalance, newBalance decimal.Decimal) {
	text := FormatPurchaseMessage(purchase, previousBalance, newBalance)
	d.dispatch("purchase", purchase.OrderID, text)
}

// PendingDigest reports the size of the approval queue. It blocks until the
// send finishes and reports whether it succeeded.
func (d *NotificationDispatcher) PendingDigest(ctx context.Context, count int64, total decimal.Decimal) bool {
	text := fmt.Sprintf("⏳ <b>Pending bKash payments</b>\n\nRequests: <b>%d</b>\nTotal claimed: <b>৳%s</b>\n\nReview them in the admin panel.",
		count, total.StringFixed(2))
	return d.send(ctx, "pending_digest", "", text)
}

// Close waits for in-flight sends. Each send is bounded by the timeout.
func (d *NotificationDispatcher) Close() {
	d.wg.Wait()
}

func (d *NotificationDispatcher) dispatch(kind, ref, text string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.send(context.Background(), kind, ref, text)
	}()
}

func (d *NotificationDispatcher) send(ctx context.Context, kind, ref, text string) bool {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.gateway.SendMessage(ctx, text); err != nil {
		extErr := &ExternalServiceError{Service: "telegram", Err: err}
		slog.Warn("Notification failed", "kind", kind, "ref", ref, "error", extErr)
		return false
	}
	slog.Debug("Notification sent", "kind", kind, "ref", ref)
	return true
}

// FormatPurchaseMessage renders the admin chat summary of an order.
func FormatPurchaseMessage(p *models.Purchase, previousBalance, newBalance decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("🛒 <b>New order</b>\n\n")
	line(&b, "Order", p.OrderID)
	line(&b, "Product", p.ProductName)
	line(&b, "Category", p.Category)
	line(&b, "Quantity", fmt.Sprintf("%d", p.Quantity))
	line(&b, "Amount", "৳"+p.TotalAmount.StringFixed(2))
	line(&b, "Balance before", "৳"+previousBalance.StringFixed(2))
	line(&b, "Balance after", "৳"+newBalance.StringFixed(2))
	b.WriteString("\n")
	line(&b, "Player ID", p.PlayerID)
	line(&b, "Username", p.GameUsername)
	line(&b, "Contact", p.ContactNumber)
	line(&b, "Customer", p.UserEmail)
	return strings.TrimRight(b.String(), "\n")
}

// line skips empty values.
func line(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: <b>%s</b>\n", label, html.EscapeString(value))
}
