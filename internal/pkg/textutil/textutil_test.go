package textutil_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/voicedesk/internal/pkg/textutil"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{"相同向量", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"正交向量", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"相反向量", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1.0},
		{"空向量", []float32{}, []float32{}, 0.0},
		{"长度不匹配", []float32{1, 2}, []float32{1}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, textutil.CosineSimilarity(tt.a, tt.b), 0.0001)
		})
	}

	assert.InDelta(t, 0.0, textutil.CosineDistance([]float32{1, 0}, []float32{1, 0}), 0.0001)
}

func TestChunk(t *testing.T) {
	t.Run("空文本", func(t *testing.T) {
		chunks := textutil.Chunk("", 10)
		assert.NotNil(t, chunks)
		assert.Empty(t, chunks)
	})

	t.Run("短文本单块", func(t *testing.T) {
		assert.Equal(t, []string{"hello"}, textutil.Chunk("hello", 10))
	})

	t.Run("按长度切分", func(t *testing.T) {
		text := strings.Repeat("a", 1700)
		chunks := textutil.Chunk(text, 800)
		assert.Len(t, chunks, 3)
		assert.Len(t, chunks[0], 800)
		assert.Len(t, chunks[2], 100)
		assert.Equal(t, text, strings.Join(chunks, ""))
	})

	t.Run("多字节字符", func(t *testing.T) {
		text := "你好世界再见"
		chunks := textutil.Chunk(text, 4)
		assert.Equal(t, []string{"你好世界", "再见"}, chunks)
	})

	t.Run("默认长度", func(t *testing.T) {
		assert.Len(t, textutil.Chunk(strings.Repeat("x", 801), 0), 2)
	})
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hamilton tickets", "hamilton tickets"},
		{`@title:{x} | "y"`, "title  x     y"},
		{"  (foo*)  ", "foo"},
		{`\@-[]{}()|<>~*:"'$%`, ""},
		{"$5 tickets 50% off", "5 tickets 50  off"},
		{"$B %fuzzy%", "B  fuzzy"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, textutil.SanitizeQuery(tt.in))
	}
}

func TestEscapeTag(t *testing.T) {
	assert.Equal(t, `five\-season\_paris`, textutil.EscapeTag("five-season_paris"))
	assert.Equal(t, "acme", textutil.EscapeTag("acme"))
}
