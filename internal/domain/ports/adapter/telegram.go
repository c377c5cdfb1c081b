// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

// Notifier delivers a short text to an account's chat. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, accountID int64, text string) error
}
