package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/pkg/textutil"
)

const (
	// DefaultShowIndex 是演出目录索引名称。
	DefaultShowIndex = "idx:shows"
	showKeyPrefix    = "show:"
	// DefaultShowLimit 是演出列表的默认条数。
	DefaultShowLimit = 50
)

// RedisShowStore 将演出存为 show:<id> 的 HASH，通过 idx:shows 检索。
type RedisShowStore struct {
	rdb   goredis.UniversalClient
	index string
	ready atomic.Bool
}

var _ ShowStore = (*RedisShowStore)(nil)

// NewRedisShowStore 创建演出目录存储。
func NewRedisShowStore(rdb goredis.UniversalClient, index string) *RedisShowStore {
	if index == "" {
		index = DefaultShowIndex
	}
	return &RedisShowStore{rdb: rdb, index: index}
}

func (s *RedisShowStore) EnsureIndex(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	err := s.rdb.Do(ctx, ShowIndexArgs(s.index)...).Err()
	if err != nil && !IsIndexExists(err) {
		return fmt.Errorf("create index %s: %w", s.index, err)
	}
	s.ready.Store(true)
	return nil
}

// Put 覆盖写入演出。
func (s *RedisShowStore) Put(ctx context.Context, shows ...*model.Show) error {
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		for _, sh := range shows {
			p.HSet(ctx, showKeyPrefix+sh.ID,
				"id", sh.ID,
				"title", sh.Title,
				"description", sh.Description,
				"img", sh.Image,
				"theatre", sh.Theatre,
				"venue", sh.Venue,
				"price", strconv.FormatFloat(sh.Price, 'f', -1, 64),
				"date", strconv.FormatInt(sh.Date, 10),
			)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put %d shows: %w", len(shows), err)
	}
	return nil
}

// Search 按日期升序返回演出；查询为空时返回全部。
func (s *RedisShowStore) Search(ctx context.Context, query string, limit int) ([]*model.Show, error) {
	if err := s.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultShowLimit
	}
	reply, err := s.rdb.Do(ctx, ShowQueryArgs(s.index, query, limit)...).Result()
	if err != nil {
		return nil, fmt.Errorf("search shows: %w", err)
	}
	docs, err := parseSearchDocs(reply)
	if err != nil {
		return nil, err
	}
	shows := make([]*model.Show, 0, len(docs))
	for _, d := range docs {
		shows = append(shows, showFromFields(d.key, d.fields))
	}
	return shows, nil
}

// ShowIndexArgs 返回演出索引的 FT.CREATE 参数。
func ShowIndexArgs(index string) []interface{} {
	return []interface{}{
		"FT.CREATE", index, "ON", "HASH", "PREFIX", "1", showKeyPrefix,
		"SCHEMA",
		"title", "TEXT",
		"description", "TEXT",
		"theatre", "TEXT",
		"venue", "TEXT",
		"price", "NUMERIC", "SORTABLE",
		"date", "NUMERIC", "SORTABLE",
	}
}

// ShowQueryArgs 返回演出检索的 FT.SEARCH 参数。
func ShowQueryArgs(index, query string, limit int) []interface{} {
	q := textutil.SanitizeQuery(query)
	if q == "" {
		q = "*"
	}
	return []interface{}{
		"FT.SEARCH", index, q,
		"SORTBY", "date", "ASC",
		"LIMIT", "0", strconv.Itoa(limit),
		"DIALECT", "2",
	}
}

func showFromFields(key string, f map[string]string) *model.Show {
	sh := &model.Show{
		ID:          f["id"],
		Title:       f["title"],
		Description: f["description"],
		Image:       f["img"],
		Theatre:     f["theatre"],
		Venue:       f["venue"],
	}
	if sh.ID == "" {
		sh.ID = strings.TrimPrefix(key, showKeyPrefix)
	}
	sh.Price, _ = strconv.ParseFloat(f["price"], 64)
	sh.Date, _ = strconv.ParseInt(f["date"], 10, 64)
	return sh
}
