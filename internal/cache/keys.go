package cache

import "time"

const (
	// Order status cache: order_status:{order_id} -> "owner_id|status"
	KeyOrderStatus = "order_status:%s"

	// Unread notification counter: unread:{user_id} -> int
	KeyUnreadCount = "unread:%s"

	// Active campaign slug for a date: campaign_active:{yyyy-mm-dd}
	KeyActiveCampaign = "campaign_active:%s"
)

var (
	TTLOrderStatus    = 5 * time.Minute
	TTLUnreadCount    = 10 * time.Minute
	TTLActiveCampaign = 15 * time.Minute
)
