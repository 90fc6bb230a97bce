package store

import (
	"sort"
	"strings"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/pkg/embedding"
	"github.com/kart-io/voicedesk/internal/pkg/textutil"
)

// rankByVector 对本地知识块做暴力 KNN，按余弦距离升序取前 k 条。
func rankByVector(chunks []*model.KnowledgeChunk, vec []float32, k int) []model.SearchHit {
	type scored struct {
		c    *model.KnowledgeChunk
		dist float64
	}
	all := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		all = append(all, scored{c: c, dist: textutil.CosineDistance(vec, c.Vector)})
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].dist < all[j].dist })
	if len(all) > k {
		all = all[:k]
	}
	hits := make([]model.SearchHit, len(all))
	for i, sc := range all {
		d := sc.dist
		hits[i] = model.SearchHit{Title: sc.c.Title, Chunk: sc.c.Chunk, Score: &d}
	}
	return hits
}

// rankByText 按查询词在标题和正文中的命中次数降序排列，查询为空时保持原顺序。
func rankByText(chunks []*model.KnowledgeChunk, query string, k int) []model.SearchHit {
	terms := embedding.Tokenize(textutil.SanitizeQuery(query))

	type scored struct {
		c    *model.KnowledgeChunk
		hits int
	}
	var all []scored
	for _, c := range chunks {
		if len(terms) == 0 {
			all = append(all, scored{c: c})
			continue
		}
		text := strings.ToLower(c.Title + " " + c.Chunk)
		n := 0
		for _, t := range terms {
			n += strings.Count(text, t)
		}
		if n > 0 {
			all = append(all, scored{c: c, hits: n})
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].hits > all[j].hits })
	if len(all) > k {
		all = all[:k]
	}
	hits := make([]model.SearchHit, len(all))
	for i, sc := range all {
		hits[i] = model.SearchHit{Title: sc.c.Title, Chunk: sc.c.Chunk}
	}
	return hits
}
