package models

// DashboardStats is the admin overview
type DashboardStats struct {
	UsersByRole      map[Role]int64          `json:"usersByRole"`
	ProductsByStatus map[ProductStatus]int64 `json:"productsByStatus"`
	OrdersByStatus   map[OrderStatus]int64   `json:"ordersByStatus"`
	Revenue          float64                 `json:"revenue"`
	PendingArtisans  int64                   `json:"pendingArtisans"`
	UnreadMessages   int64                   `json:"unreadMessages"`
}
