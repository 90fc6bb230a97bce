package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/kart-io/logger"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/pkg/utils/json"
)

// BadgerKnowledgeStore 把知识块持久化到本地 BadgerDB，检索时按租户前缀扫描后在进程内排序。
// 适合单机部署；键格式与 Redis 实现相同。
type BadgerKnowledgeStore struct {
	db       *badger.DB
	pageSize int
}

var _ KnowledgeStore = (*BadgerKnowledgeStore)(nil)

// badgerRecord 是磁盘上的值，Vector 在 KnowledgeChunk 的 JSON 中被省略。
type badgerRecord struct {
	Title     string    `json:"title"`
	Chunk     string    `json:"chunk"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
	Vector    []float32 `json:"vector"`
}

type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Errorw("badger", "detail", fmt.Sprintf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Warnw("badger", "detail", fmt.Sprintf(format, args...))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logger.Debugw("badger", "detail", fmt.Sprintf(format, args...))
}

func (badgerLogger) Debugf(string, ...interface{}) {}

// OpenBadgerKnowledgeStore 打开 dir 下的数据库，目录不存在时创建；dir 为空时使用纯内存模式。
func OpenBadgerKnowledgeStore(dir string) (*BadgerKnowledgeStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = badgerLogger{}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return &BadgerKnowledgeStore{db: db, pageSize: scanPageSize}, nil
}

// Close 关闭数据库。
func (s *BadgerKnowledgeStore) Close() error {
	return s.db.Close()
}

// EnsureIndex 无需操作。
func (s *BadgerKnowledgeStore) EnsureIndex(context.Context) error { return nil }

func (s *BadgerKnowledgeStore) Put(_ context.Context, tenant string, chunk *model.KnowledgeChunk) error {
	if err := CheckTenant(tenant); err != nil {
		return err
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now()
	}
	if chunk.Source == "" {
		chunk.Source = model.DefaultSource
	}
	chunk.ID = KnowledgeKey(tenant, chunk.CreatedAt)
	chunk.TenantID = tenant

	raw, err := json.Marshal(badgerRecord{
		Title:     chunk.Title,
		Chunk:     chunk.Chunk,
		Source:    chunk.Source,
		CreatedAt: chunk.CreatedAt,
		Vector:    chunk.Vector,
	})
	if err != nil {
		return fmt.Errorf("encode chunk: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(chunk.ID), raw)
	})
}

func (s *BadgerKnowledgeStore) SearchVector(_ context.Context, tenant string, vec []float32, k int) ([]model.SearchHit, error) {
	chunks, err := s.load(tenant)
	if err != nil {
		return nil, err
	}
	return rankByVector(chunks, vec, normalizeK(k)), nil
}

func (s *BadgerKnowledgeStore) SearchText(_ context.Context, tenant, query string, k int) ([]model.SearchHit, error) {
	chunks, err := s.load(tenant)
	if err != nil {
		return nil, err
	}
	return rankByText(chunks, query, normalizeK(k)), nil
}

// DeleteAllForTenant 按页删除租户的全部键，每页最多 pageSize 个，每页单独提交。
func (s *BadgerKnowledgeStore) DeleteAllForTenant(ctx context.Context, tenant string) (int, error) {
	if err := CheckTenant(tenant); err != nil {
		return 0, err
	}

	deleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		keys, err := s.keyPage(tenantPrefix(tenant))
		if err != nil {
			return deleted, fmt.Errorf("scan tenant %s: %w", tenant, err)
		}
		if len(keys) == 0 {
			break
		}

		wb := s.db.NewWriteBatch()
		for _, k := range keys {
			if err := wb.Delete(k); err != nil {
				wb.Cancel()
				return deleted, fmt.Errorf("delete %s: %w", k, err)
			}
		}
		if err := wb.Flush(); err != nil {
			return deleted, fmt.Errorf("delete tenant %s: %w", tenant, err)
		}
		deleted += len(keys)
		if len(keys) < s.pageSize {
			break
		}
	}

	logger.Infow("knowledge purged", "tenant", tenant, "deleted", deleted)
	return deleted, nil
}

// keyPage 返回 prefix 下最多 pageSize 个键。已删除的键不会再出现，
// 所以每页都从前缀起点开始。
func (s *BadgerKnowledgeStore) keyPage(prefix []byte) ([][]byte, error) {
	keys := make([][]byte, 0, s.pageSize)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid() && len(keys) < s.pageSize; it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

// load 按键序（即写入时间序）读取租户的全部知识块。
func (s *BadgerKnowledgeStore) load(tenant string) ([]*model.KnowledgeChunk, error) {
	if err := CheckTenant(tenant); err != nil {
		return nil, err
	}
	var chunks []*model.KnowledgeChunk
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = tenantPrefix(tenant)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var rec badgerRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", item.Key(), err)
			}
			chunks = append(chunks, &model.KnowledgeChunk{
				ID:        string(item.KeyCopy(nil)),
				TenantID:  tenant,
				Title:     rec.Title,
				Chunk:     rec.Chunk,
				Source:    rec.Source,
				CreatedAt: rec.CreatedAt,
				Vector:    rec.Vector,
			})
		}
		return nil
	})
	return chunks, err
}

func tenantPrefix(tenant string) []byte {
	return []byte(KnowledgeKeyPrefix + tenant + ":")
}
