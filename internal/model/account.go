package model

const (
	RoleAdmin  = "ADMIN"
	RoleSeller = "SELLER"
	RoleBuyer  = "BUYER"
)

// RateLimitConfig 定义账户的限流规则
type RateLimitConfig struct {
	QPS   float64 `json:"qps"`   // 每秒查询数
	Burst int     `json:"burst"` // 突发桶大小
}

// Account 代表一个接入方: a marketplace user (seller/buyer) or an admin operator.
type Account struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	ApiKey string          `json:"api_key"`
	Role   string          `json:"role"`
	Rate   RateLimitConfig `json:"rate_limit"`
}

func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
