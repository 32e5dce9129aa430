package service

import (
	"context"
	"sync"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/pkg/logger"
)

const defaultAuditBuffer = 1000

// AuditService persists audit entries off the request path. The most recent
// entries are also kept in a ring buffer that answers listings when the
// repository is absent or failing.
type AuditService struct {
	logChan chan *model.AuditLog
	buffer  *auditBuffer
	repo    AuditRepo
	done    chan struct{}
	once    sync.Once
}

// NewAuditService starts the writer goroutine. repo may be nil.
func NewAuditService(repo AuditRepo, bufferSize int) *AuditService {
	if bufferSize <= 0 {
		bufferSize = defaultAuditBuffer
	}
	svc := &AuditService{
		logChan: make(chan *model.AuditLog, bufferSize),
		buffer:  newAuditBuffer(bufferSize),
		repo:    repo,
		done:    make(chan struct{}),
	}

	// 启动消费者 goroutine
	go svc.processLogs()

	return svc
}

func (s *AuditService) Log(entry *model.AuditLog) {
	if entry == nil {
		return
	}
	s.buffer.Add(entry)
	select {
	case s.logChan <- entry:
	default:
		// 缓冲区满，丢弃日志以保护主流程
		logger.Warn("audit log buffer full, dropping entry", "id", entry.ID, "path", entry.Path)
	}
}

func (s *AuditService) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, error) {
	if s.repo != nil {
		records, err := s.repo.List(ctx, filter)
		if err == nil {
			return records, nil
		}
		logger.LogError(ctx, err, "audit repository list failed, serving from memory")
	}
	return s.buffer.List(filter), nil
}

func (s *AuditService) processLogs() {
	defer close(s.done)
	for entry := range s.logChan {
		if s.repo == nil {
			continue
		}
		if err := s.repo.Insert(context.Background(), entry); err != nil {
			logger.Error("failed to persist audit log", "id", entry.ID, "error", err.Error())
		}
	}
}

// Close drains pending entries and stops the writer.
func (s *AuditService) Close() {
	s.once.Do(func() {
		close(s.logChan)
		<-s.done
	})
}

type auditBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.AuditLog
	nextIndex int
}

func newAuditBuffer(maxSize int) *auditBuffer {
	return &auditBuffer{
		maxSize: maxSize,
		records: make([]*model.AuditLog, 0, maxSize),
	}
}

func (b *auditBuffer) Add(entry *model.AuditLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, entry)
		return
	}
	b.records[b.nextIndex] = entry
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

// List walks newest first.
func (b *auditBuffer) List(filter model.AuditFilter) []*model.AuditLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	limit := filter.Limit
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.AuditLog, 0, limit)
	skipped := 0
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		entry := b.records[idx]
		if filter.AccountID != "" && entry.AccountID != filter.AccountID {
			continue
		}
		if filter.Start != nil && entry.CreatedAt.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && entry.CreatedAt.After(*filter.End) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		results = append(results, entry)
		if len(results) >= limit {
			break
		}
	}
	return results
}
