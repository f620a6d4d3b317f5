package enums

import "fmt"

// NotificationType is the kind of product alert a customer subscribes to.
type NotificationType string

const (
	NotificationTypeBackInStock NotificationType = "back_in_stock"
	NotificationTypePriceDrop   NotificationType = "price_drop"
	NotificationTypeLowStock    NotificationType = "low_stock"

	// NotificationTypeWishlistReminder tags reminder deliveries; it is not subscribable.
	NotificationTypeWishlistReminder NotificationType = "wishlist_reminder"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeBackInStock,
	NotificationTypePriceDrop,
	NotificationTypeLowStock,
}

// IsValid checks whether the given type is a subscribable alert type.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

func (n NotificationType) String() string {
	return string(n)
}

// Subject is the email subject used for alerts of this type.
func (n NotificationType) Subject() string {
	switch n {
	case NotificationTypeBackInStock:
		return "Back in Stock Alert"
	case NotificationTypeLowStock:
		return "Low Stock Alert"
	case NotificationTypePriceDrop:
		return "Price Drop Alert"
	case NotificationTypeWishlistReminder:
		return "Your wishlist is waiting"
	default:
		return "Product Alert"
	}
}

// ParseNotificationType converts raw strings into NotificationType. Empty input
// defaults to back_in_stock.
func ParseNotificationType(value string) (NotificationType, error) {
	if value == "" {
		return NotificationTypeBackInStock, nil
	}
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
