// Package textutil 提供知识库相关的文本处理工具函数。
package textutil

import (
	"math"
	"strings"
)

// DefaultChunkSize 是默认的分块长度（Unicode 字符数）。
const DefaultChunkSize = 800

// CosineSimilarity 计算两个向量的余弦相似度。
// 返回值范围为 [-1, 1]，1 表示完全相同，-1 表示完全相反。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance 返回 1 - 余弦相似度，与 RediSearch COSINE 距离一致。
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// Chunk 将文本按 maxLen 个字符切分为连续、不重叠的块。
// 拼接所有块可还原原文；空文本返回空切片。maxLen <= 0 时使用默认值。
func Chunk(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultChunkSize
	}
	if text == "" {
		return []string{}
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+maxLen-1)/maxLen)
	for i := 0; i < len(runes); i += maxLen {
		end := i + maxLen
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// queryMetaChars 是 RediSearch 查询语法中的特殊字符。
// DIALECT 2 下 $ 引用参数，% 表示模糊匹配。
const queryMetaChars = `\@-[]{}()|<>~*:"'$%`

// SanitizeQuery 将查询语法特殊字符替换为空格并去除首尾空白，
// 防止用户输入改变查询结构。
func SanitizeQuery(q string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if strings.ContainsRune(queryMetaChars, r) {
			return ' '
		}
		return r
	}, q))
}

// EscapeTag 转义 TAG 字段值中的分隔符，使租户 ID 可以安全地放入 {...}。
func EscapeTag(v string) string {
	var b strings.Builder
	b.Grow(len(v) + 4)
	for _, r := range v {
		switch r {
		case '-', '_', '.', ' ', ',', ':', '@', '{', '}', '|', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
