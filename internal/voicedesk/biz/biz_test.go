package biz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/pkg/embedding"
	"github.com/kart-io/voicedesk/internal/voicedesk/relay"
	"github.com/kart-io/voicedesk/internal/voicedesk/store"
	"github.com/kart-io/voicedesk/pkg/infra/pool"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
)

type fixture struct {
	mr        *miniredis.Miniredis
	rdb       *goredis.Client
	relay     *relay.RedisRelay
	knowledge *store.MemoryKnowledgeStore
	tickets   *store.RedisTicketStore
	calls     *store.RedisCallStore
	embedder  *embedding.HashEmbedder

	ingester   *Ingester
	search     *KnowledgeService
	tenants    *TenantService
	dispatcher *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), Protocol: 2, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	p, err := pool.NewPool("ingest-test", pool.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(p.Release)

	f := &fixture{
		mr:        mr,
		rdb:       rdb,
		relay:     relay.NewRedisRelay(rdb, relay.Options{}),
		knowledge: store.NewMemoryKnowledgeStore(),
		tickets:   store.NewRedisTicketStore(rdb),
		calls:     store.NewRedisCallStore(rdb),
		embedder:  embedding.NewHashEmbedder(embedding.DefaultDimension),
	}
	f.ingester = NewIngester(f.knowledge, f.embedder, f.relay, p, IngesterConfig{})
	f.search = NewKnowledgeService(f.knowledge, f.embedder)
	f.tenants = NewTenantService(store.NewRedisTenantStore(rdb), f.knowledge)
	f.dispatcher = NewDispatcher(f.tenants, f.calls, f.tickets, f.knowledge, f.relay)
	return f
}

func (f *fixture) streamEvents(t *testing.T, streamID string) []model.LoggedEvent {
	t.Helper()
	events, err := f.relay.Range(context.Background(), streamID, "", "", 1000)
	require.NoError(t, err)
	return events
}

func TestIngestSingleInputScenario(t *testing.T) {
	f := newFixture(t)
	n, err := f.ingester.Ingest(context.Background(), "acme", []model.IngestInput{{Title: "FAQ", Text: "Hello world"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.knowledge.Count("acme"))

	events := f.streamEvents(t, "ingest:acme")
	require.Len(t, events, 2)
	assert.Equal(t, model.EventIngestProgress, events[0].Event.Type)
	assert.Equal(t, 1, *events[0].Event.Processed)
	assert.Equal(t, 1, *events[0].Event.Total)
	assert.Equal(t, model.EventIngestComplete, events[1].Event.Type)
	assert.Equal(t, 1, *events[1].Event.Processed)
	assert.Equal(t, "acme", events[1].Event.CompanyID)
}

func TestIngestProgressIsMonotonic(t *testing.T) {
	f := newFixture(t)
	inputs := []model.IngestInput{
		{Title: "a", Text: strings.Repeat("alpha ", 400)},
		{Title: "skip", Text: "   "},
		{Title: "b", Text: "bravo"},
		{Title: "c", Text: strings.Repeat("charlie ", 300), Source: "upload"},
	}
	n, err := f.ingester.Ingest(context.Background(), "acme", inputs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	// 2400/800 + 1 + 2400/800
	assert.Equal(t, 7, f.knowledge.Count("acme"))

	events := f.streamEvents(t, "ingest:acme")
	require.Len(t, events, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, model.EventIngestProgress, events[i].Event.Type)
		assert.Equal(t, i+1, *events[i].Event.Processed)
		assert.Equal(t, 3, *events[i].Event.Total)
	}
	last := events[3].Event
	assert.Equal(t, model.EventIngestComplete, last.Type)
	assert.Equal(t, *last.Total, *last.Processed)
}

func TestIngestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ingester.Ingest(ctx, "", []model.IngestInput{{Text: "x"}})
	assert.ErrorIs(t, err, errs.ErrInvalidTenant)

	_, err = f.ingester.Ingest(ctx, "acme", nil)
	assert.ErrorIs(t, err, errs.ErrMissingInputs)

	_, err = f.ingester.Ingest(ctx, "acme", []model.IngestInput{{Title: "t", Text: " \n"}})
	assert.ErrorIs(t, err, errs.ErrNoValidInputs)
	assert.Empty(t, f.streamEvents(t, "ingest:acme"))
}

type failingStore struct{ *store.MemoryKnowledgeStore }

func (failingStore) Put(context.Context, string, *model.KnowledgeChunk) error {
	return errors.New("disk full")
}

func TestIngestFailureEmitsNoCompletion(t *testing.T) {
	f := newFixture(t)
	p, err := pool.NewPool("ingest-fail", pool.DefaultConfig())
	require.NoError(t, err)
	defer p.Release()

	ing := NewIngester(failingStore{store.NewMemoryKnowledgeStore()}, f.embedder, f.relay, p, IngesterConfig{})
	_, err = ing.Ingest(context.Background(), "acme", []model.IngestInput{{Title: "x", Text: "hello"}})
	assert.ErrorIs(t, err, errs.ErrIngestFailed)

	for _, e := range f.streamEvents(t, "ingest:acme") {
		assert.NotEqual(t, model.EventIngestComplete, e.Event.Type)
	}
}

func TestKnowledgeSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ingester.Ingest(ctx, "acme", []model.IngestInput{
		{Title: "refunds", Text: "refunds are issued within five days"},
		{Title: "parking", Text: "parking is available on level two"},
	})
	require.NoError(t, err)

	hits, err := f.search.Search(ctx, "acme", "refunds issued", "", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "refunds", hits[0].Title)
	assert.NotNil(t, hits[0].Score)

	// 空查询返回任意记录
	hits, err = f.search.Search(ctx, "acme", "", model.SearchText, 5)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = f.search.Search(ctx, "other", "refunds", model.SearchVector, 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)

	_, err = f.search.Search(ctx, "acme", "x", "fuzzy", 5)
	assert.ErrorIs(t, err, errs.ErrInvalidSearchType)

	_, err = f.search.Search(ctx, "a}b", "x", model.SearchText, 5)
	assert.ErrorIs(t, err, errs.ErrInvalidTenant)
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding service down")
}

func (failingEmbedder) Dimension() int { return embedding.DefaultDimension }

func TestEmbedderFailure(t *testing.T) {
	f := newFixture(t)
	p, err := pool.NewPool("ingest-fail", pool.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(p.Release)

	ing := NewIngester(f.knowledge, failingEmbedder{}, f.relay, p, IngesterConfig{})
	_, err = ing.Ingest(context.Background(), "acme", []model.IngestInput{{Title: "t", Text: "hello"}})
	assert.ErrorIs(t, err, errs.ErrIngestFailed)
	assert.Zero(t, f.knowledge.Count("acme"))

	search := NewKnowledgeService(f.knowledge, failingEmbedder{})
	_, err = search.Search(context.Background(), "acme", "hello", model.SearchVector, 3)
	assert.ErrorIs(t, err, errs.ErrSearchFailed)

	// 文本检索不依赖向量
	_, err = search.Search(context.Background(), "acme", "hello", model.SearchText, 3)
	assert.NoError(t, err)
}
