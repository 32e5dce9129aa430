package model

import (
	"time"
)

// AuditLog 代表一次完整的操作审计记录
type AuditLog struct {
	ID        string `json:"id" gorm:"primaryKey;type:text"`        // 唯一请求 ID (UUID)
	AccountID string `json:"account_id" gorm:"type:text;index"`     // 账户 ID
	Role      string `json:"role,omitempty" gorm:"type:varchar(32)"`
	Method    string `json:"method" gorm:"type:varchar(8)"`
	Path      string `json:"path" gorm:"type:text"`
	IP        string `json:"ip" gorm:"type:text"`
	UserAgent string `json:"user_agent" gorm:"type:text"`

	// 请求详情
	RequestBody   string `json:"request_body" gorm:"type:text"` // 请求体 (脱敏后)
	RequestHeader string `json:"request_header" gorm:"type:text"`

	// 响应详情
	StatusCode   int    `json:"status_code"`
	ResponseBody string `json:"response_body" gorm:"type:text"`
	LatencyMs    int64  `json:"latency_ms"`

	// 业务上下文: withdrawal id, guard verdicts, escalation types
	Context map[string]interface{} `json:"context" gorm:"serializer:json;type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// AuditFilter narrows an audit listing.
type AuditFilter struct {
	AccountID string
	Start     *time.Time
	End       *time.Time
	Limit     int
	Offset    int
}
