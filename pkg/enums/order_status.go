package enums

// OrderStatus tracks a persisted breakfast order.
type OrderStatus string

const (
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCanceled  OrderStatus = "canceled"
)

var orderStatuses = []OrderStatus{OrderStatusPaid, OrderStatusDelivered, OrderStatusCanceled}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return oneOf(s, orderStatuses) }

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse("order status", value, orderStatuses, false)
}
