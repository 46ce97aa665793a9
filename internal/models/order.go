package models

// Order statuses accepted by the admin screen.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// OrderStatuses lists the statuses in display order.
var OrderStatuses = []string{StatusPending, StatusPaid, StatusDelivered, StatusCancelled}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type Order struct {
	ID         string      `json:"_id"`
	User       Customer    `json:"user"`
	TotalPrice float64     `json:"totalPrice"`
	Status     string      `json:"status"`
	CreatedAt  string      `json:"createdAt"`
	Items      []OrderItem `json:"orderItems"`
}

// OrderPage is one page of the admin order listing.
type OrderPage struct {
	Orders      []Order `json:"orders"`
	CurrentPage int     `json:"currentPage"`
	TotalPages  int     `json:"totalPages"`
	TotalOrders int     `json:"totalOrders"`
}

// OrderCriteria filters the admin order table. Status "all" or empty
// means any status.
type OrderCriteria struct {
	Keyword string `json:"keyword,omitempty"`
	Status  string `json:"status,omitempty"`
}

// User is the authenticated account returned by login.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u User) IsAdmin() bool { return u.Role == "admin" }

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
