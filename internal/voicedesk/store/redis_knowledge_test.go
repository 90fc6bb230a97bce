package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/voicedesk/internal/model"
)

func TestKnowledgeIndexArgs(t *testing.T) {
	args := KnowledgeIndexArgs("idx:kb", 256)
	got := make([]string, len(args))
	for i, a := range args {
		got[i] = a.(string)
	}
	assert.Equal(t,
		"FT.CREATE idx:kb ON HASH PREFIX 1 kb: SCHEMA companyId TAG CASESENSITIVE title TEXT chunk TEXT "+
			"vector VECTOR HNSW 6 TYPE FLOAT32 DIM 256 DISTANCE_METRIC COSINE",
		strings.Join(got, " "))
}

func TestVectorQueryArgs(t *testing.T) {
	args := VectorQueryArgs("idx:kb", "five-season", []float32{1, 0}, 3)
	assert.Equal(t, "FT.SEARCH", args[0])
	assert.Equal(t, `(@companyId:{five\-season})=>[KNN 3 @vector $B]`, args[2])
	assert.Equal(t, VectorBytes([]float32{1, 0}), args[6])
	assert.Contains(t, args, "__vector_score")
	assert.Equal(t, "2", args[len(args)-1])

	// 租户 ID 原样进入过滤条件，不做大小写折叠
	upper := VectorQueryArgs("idx:kb", "Acme", []float32{1, 0}, 3)
	lower := VectorQueryArgs("idx:kb", "acme", []float32{1, 0}, 3)
	assert.Equal(t, `(@companyId:{Acme})=>[KNN 3 @vector $B]`, upper[2])
	assert.NotEqual(t, upper[2], lower[2])
}

func TestTextQueryArgs(t *testing.T) {
	args := TextQueryArgs("idx:kb", "acme", "refund | policy*", 5)
	assert.Equal(t, "@companyId:{acme} refund   policy", args[2])

	// 清洗后为空时只保留租户过滤
	args = TextQueryArgs("idx:kb", "acme", "", 5)
	assert.Equal(t, "@companyId:{acme}", args[2])
	args = TextQueryArgs("idx:kb", "acme", "@*:", 5)
	assert.Equal(t, "@companyId:{acme}", args[2])

	// $ 与 % 在 DIALECT 2 中是参数引用和模糊匹配
	args = TextQueryArgs("idx:kb", "acme", "$5 tickets 50% off", 5)
	assert.Equal(t, "@companyId:{acme} 5 tickets 50  off", args[2])
}

func TestVectorBytesRoundTrip(t *testing.T) {
	vec := []float32{0.5, -1.25, 0, 3}
	b := VectorBytes(vec)
	assert.Len(t, b, 16)
	assert.Equal(t, []byte{0, 0, 0, 0x3f}, b[:4])
	assert.Equal(t, vec, BytesVector(b))
}

func TestParseSearchReply(t *testing.T) {
	reply := []interface{}{
		int64(2),
		"kb:acme:1:abc",
		[]interface{}{"title", "FAQ", "chunk", "Hello world", "__vector_score", "0.125"},
		"kb:acme:2:def",
		[]interface{}{"title", []byte("Other"), "chunk", "text", "__vector_score", "0.5"},
	}

	hits, err := ParseSearchReply(reply, true)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "FAQ", hits[0].Title)
	assert.Equal(t, "Hello world", hits[0].Chunk)
	require.NotNil(t, hits[0].Score)
	assert.InDelta(t, 0.125, *hits[0].Score, 1e-9)
	assert.Equal(t, "Other", hits[1].Title)

	hits, err = ParseSearchReply(reply, false)
	require.NoError(t, err)
	assert.Nil(t, hits[0].Score)

	hits, err = ParseSearchReply([]interface{}{int64(0)}, true)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = ParseSearchReply(map[interface{}]interface{}{}, true)
	assert.Error(t, err)
}

func TestIsIndexExists(t *testing.T) {
	assert.True(t, IsIndexExists(errors.New("Index already exists")))
	assert.False(t, IsIndexExists(errors.New("ERR unknown command")))
	assert.False(t, IsIndexExists(nil))
}

func TestRedisKnowledgePutAndDelete(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	s := NewRedisKnowledgeStore(rdb, "", 4)

	for i := 0; i < 3; i++ {
		c := &model.KnowledgeChunk{Title: "FAQ", Chunk: "hello", Vector: []float32{1, 0, 0, 0}}
		require.NoError(t, s.Put(ctx, "acme", c))
		assert.True(t, strings.HasPrefix(c.ID, "kb:acme:"))
		assert.Equal(t, "acme", mr.HGet(c.ID, "companyId"))
		assert.Equal(t, "manual", mr.HGet(c.ID, "source"))
		assert.Len(t, mr.HGet(c.ID, "vector"), 16)
	}
	other := &model.KnowledgeChunk{Title: "x", Chunk: "y", Vector: []float32{0, 1, 0, 0}, CreatedAt: time.Now()}
	require.NoError(t, s.Put(ctx, "acme-2", other))

	n, err := s.DeleteAllForTenant(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, mr.Exists(other.ID), "prefix match must not cross into acme-2")

	n, err = s.DeleteAllForTenant(ctx, "acme")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSearchIndexCommandsSurfaceErrors(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()
	var rdb goredis.UniversalClient = client

	// miniredis 不支持 FT.*，原始命令的错误应原样返回且不标记就绪
	ks := NewRedisKnowledgeStore(rdb, "", 4)
	err := ks.EnsureIndex(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create index idx:kb")
	assert.False(t, ks.ready.Load())

	_, err = ks.SearchText(ctx, "acme", "refund", 3)
	assert.Error(t, err)

	shows := NewRedisShowStore(rdb, "")
	assert.Error(t, shows.EnsureIndex(ctx))
}

func TestRedisKnowledgeRejectsBadInput(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	s := NewRedisKnowledgeStore(rdb, "", 4)

	err := s.Put(ctx, "acme", &model.KnowledgeChunk{Vector: []float32{1}})
	assert.Error(t, err)

	err = s.Put(ctx, "a*", &model.KnowledgeChunk{Vector: make([]float32, 4)})
	assert.ErrorIs(t, err, ErrInvalidTenant)

	_, err = s.DeleteAllForTenant(ctx, "*")
	assert.ErrorIs(t, err, ErrInvalidTenant)

	_, err = s.SearchText(ctx, "}", "q", 1)
	assert.ErrorIs(t, err, ErrInvalidTenant)
}
