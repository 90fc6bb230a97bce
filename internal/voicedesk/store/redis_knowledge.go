package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/logger"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/pkg/textutil"
	"github.com/kart-io/voicedesk/pkg/utils/id"
)

const (
	// DefaultKnowledgeIndex 是知识库索引名称。
	DefaultKnowledgeIndex = "idx:kb"
	// KnowledgeKeyPrefix 是知识块 HASH 键前缀。
	KnowledgeKeyPrefix = "kb:"
	// DefaultTopK 是未指定 k 时的返回条数。
	DefaultTopK = 5

	scanPageSize   = 100
	vectorScoreKey = "__vector_score"
)

// RedisKnowledgeStore 实现基于 RediSearch 的知识库存储。
type RedisKnowledgeStore struct {
	rdb   goredis.UniversalClient
	index string
	dim   int
	ready atomic.Bool
}

var _ KnowledgeStore = (*RedisKnowledgeStore)(nil)

// NewRedisKnowledgeStore 创建知识库存储实例。index 为空时使用默认索引名。
func NewRedisKnowledgeStore(rdb goredis.UniversalClient, index string, dim int) *RedisKnowledgeStore {
	if index == "" {
		index = DefaultKnowledgeIndex
	}
	return &RedisKnowledgeStore{rdb: rdb, index: index, dim: dim}
}

// EnsureIndex 创建向量索引。索引已存在视为成功，成功后不再重复检查。
func (s *RedisKnowledgeStore) EnsureIndex(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	err := s.rdb.Do(ctx, KnowledgeIndexArgs(s.index, s.dim)...).Err()
	if err != nil && !IsIndexExists(err) {
		return fmt.Errorf("create index %s: %w", s.index, err)
	}
	s.ready.Store(true)
	return nil
}

// Put 以 kb:<tenant>:<ms>:<suffix> 为键写入一个 HASH。
func (s *RedisKnowledgeStore) Put(ctx context.Context, tenant string, chunk *model.KnowledgeChunk) error {
	if err := CheckTenant(tenant); err != nil {
		return err
	}
	if len(chunk.Vector) != s.dim {
		return fmt.Errorf("vector dimension %d, index expects %d", len(chunk.Vector), s.dim)
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now()
	}
	if chunk.Source == "" {
		chunk.Source = model.DefaultSource
	}

	key := KnowledgeKey(tenant, chunk.CreatedAt)
	err := s.rdb.HSet(ctx, key,
		"companyId", tenant,
		"title", chunk.Title,
		"chunk", chunk.Chunk,
		"source", chunk.Source,
		"createdAt", strconv.FormatInt(chunk.CreatedAt.UnixMilli(), 10),
		"vector", VectorBytes(chunk.Vector),
	).Err()
	if err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	chunk.ID = key
	chunk.TenantID = tenant
	return nil
}

// SearchVector 执行 KNN 检索，结果按 __vector_score 升序。
func (s *RedisKnowledgeStore) SearchVector(ctx context.Context, tenant string, vec []float32, k int) ([]model.SearchHit, error) {
	if err := CheckTenant(tenant); err != nil {
		return nil, err
	}
	if err := s.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	reply, err := s.rdb.Do(ctx, VectorQueryArgs(s.index, tenant, vec, normalizeK(k))...).Result()
	if err != nil {
		return nil, fmt.Errorf("vector search %s: %w", tenant, err)
	}
	return ParseSearchReply(reply, true)
}

// SearchText 执行全文检索。查询经过清洗，清洗后为空时只按租户过滤。
func (s *RedisKnowledgeStore) SearchText(ctx context.Context, tenant, query string, k int) ([]model.SearchHit, error) {
	if err := CheckTenant(tenant); err != nil {
		return nil, err
	}
	if err := s.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	reply, err := s.rdb.Do(ctx, TextQueryArgs(s.index, tenant, query, normalizeK(k))...).Result()
	if err != nil {
		return nil, fmt.Errorf("text search %s: %w", tenant, err)
	}
	return ParseSearchReply(reply, false)
}

// DeleteAllForTenant 按页 SCAN kb:<tenant>:* 并逐页删除。
func (s *RedisKnowledgeStore) DeleteAllForTenant(ctx context.Context, tenant string) (int, error) {
	if err := CheckTenant(tenant); err != nil {
		return 0, err
	}

	match := KnowledgeKeyPrefix + tenant + ":*"
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, match, scanPageSize).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan %s: %w", match, err)
		}
		if len(keys) > 0 {
			n, err := s.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("del %s: %w", match, err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	logger.Infow("knowledge purged", "tenant", tenant, "deleted", deleted)
	return deleted, nil
}

func normalizeK(k int) int {
	if k <= 0 {
		return DefaultTopK
	}
	return k
}

// KnowledgeKey 生成知识块键。后缀只需避免并发写入冲突。
func KnowledgeKey(tenant string, at time.Time) string {
	return fmt.Sprintf("%s%s:%d:%s", KnowledgeKeyPrefix, tenant, at.UnixMilli(), id.Suffix(6))
}

// KnowledgeIndexArgs 返回 FT.CREATE 命令参数。
// companyId 必须区分大小写，否则 Acme 与 acme 会落到同一个 TAG 值上。
func KnowledgeIndexArgs(index string, dim int) []interface{} {
	return []interface{}{
		"FT.CREATE", index, "ON", "HASH", "PREFIX", "1", KnowledgeKeyPrefix,
		"SCHEMA",
		"companyId", "TAG", "CASESENSITIVE",
		"title", "TEXT",
		"chunk", "TEXT",
		"vector", "VECTOR", "HNSW", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dim),
		"DISTANCE_METRIC", "COSINE",
	}
}

// tenantFilter 返回租户 TAG 过滤条件。
func tenantFilter(tenant string) string {
	return "@companyId:{" + textutil.EscapeTag(tenant) + "}"
}

// VectorQueryArgs 返回 KNN 检索的 FT.SEARCH 参数。
func VectorQueryArgs(index, tenant string, vec []float32, k int) []interface{} {
	query := fmt.Sprintf("(%s)=>[KNN %d @vector $B]", tenantFilter(tenant), k)
	return []interface{}{
		"FT.SEARCH", index, query,
		"PARAMS", "2", "B", VectorBytes(vec),
		"RETURN", "3", "title", "chunk", vectorScoreKey,
		"SORTBY", vectorScoreKey, "ASC",
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	}
}

// TextQueryArgs 返回全文检索的 FT.SEARCH 参数。
func TextQueryArgs(index, tenant, query string, k int) []interface{} {
	q := tenantFilter(tenant)
	if safe := textutil.SanitizeQuery(query); safe != "" {
		q += " " + safe
	}
	return []interface{}{
		"FT.SEARCH", index, q,
		"RETURN", "2", "title", "chunk",
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	}
}

// VectorBytes 将向量编码为小端 FLOAT32 字节序列。
func VectorBytes(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// BytesVector 是 VectorBytes 的逆操作。
func BytesVector(b []byte) []float32 {
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec
}

// IsIndexExists 判断 FT.CREATE 错误是否为索引已存在。
func IsIndexExists(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "index already exists")
}

// ParseSearchReply 解析 RESP2 格式的 FT.SEARCH 回复：
// [total, key1, [field, value, ...], key2, [...], ...]。
func ParseSearchReply(reply interface{}, withScore bool) ([]model.SearchHit, error) {
	docs, err := parseSearchDocs(reply)
	if err != nil {
		return nil, err
	}
	hits := make([]model.SearchHit, 0, len(docs))
	for _, d := range docs {
		hit := model.SearchHit{Title: d.fields["title"], Chunk: d.fields["chunk"]}
		if withScore {
			if raw, ok := d.fields[vectorScoreKey]; ok {
				if f, err := strconv.ParseFloat(raw, 64); err == nil {
					hit.Score = &f
				}
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

type searchDoc struct {
	key    string
	fields map[string]string
}

func parseSearchDocs(reply interface{}) ([]searchDoc, error) {
	arr, ok := reply.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected FT.SEARCH reply type %T", reply)
	}
	if len(arr) == 0 {
		return nil, nil
	}

	docs := make([]searchDoc, 0, (len(arr)-1)/2)
	for i := 1; i+1 < len(arr); i += 2 {
		fields, ok := arr[i+1].([]interface{})
		if !ok {
			continue
		}
		d := searchDoc{key: toString(arr[i]), fields: make(map[string]string, len(fields)/2)}
		for j := 0; j+1 < len(fields); j += 2 {
			d.fields[toString(fields[j])] = toString(fields[j+1])
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
