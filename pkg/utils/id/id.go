// Package id generates the identifiers voicedesk assigns on its own:
// call and ticket ids when the voice SDK supplies none, and the random
// suffix of knowledge chunk keys.
package id

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator 使用 ULID 算法生成时间可排序的唯一 ID
//
// 格式: 01AN4Z07BY79KA1307SR9X4MV3
//   - 前 10 字符: 时间戳 (毫秒)
//   - 后 16 字符: 随机熵
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewULIDGenerator 创建新的 ULID 生成器
func NewULIDGenerator() *ULIDGenerator {
	// 单调熵源保证同一毫秒内生成的 ID 仍然有序
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Generate returns a new ULID string.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

var defaultGenerator = NewULIDGenerator()

// New returns a new ULID from the default generator.
func New() string {
	return defaultGenerator.Generate()
}

// WithPrefix returns "<prefix>_<ulid>", e.g. call_01HV....
func WithPrefix(prefix string) string {
	return prefix + "_" + strings.ToLower(New())
}

// Suffix returns a short lowercase random token of n characters (max 16)
// taken from the entropy part of a fresh ULID.
func Suffix(n int) string {
	if n <= 0 || n > 16 {
		n = 16
	}
	u := New()
	return strings.ToLower(u[len(u)-n:])
}
