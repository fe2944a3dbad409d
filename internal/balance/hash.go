package balance

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/buraksezer/consistent"
	"github.com/cespare/xxhash/v2"
	"github.com/findworkai/aigate/internal/constants"
)

// 哈希环参数
const (
	hashPartitionCount    = 271
	hashReplicationFactor = 20
	hashLoad              = 1.25
)

// hasher 实现 consistent.Hasher 接口，使用 xxhash 算法
type hasher struct{}

func (hasher) Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// member 代表哈希环中的一个上游
type member string

func (m member) String() string {
	return string(m)
}

// HashBalancer 按限流标识符做一致性哈希，同一客户端的请求固定落到同一个 AI 后端
// context 中没有标识符时退回轮询
type HashBalancer struct {
	mu        sync.Mutex
	ring      *consistent.Consistent
	members   string
	upstreams map[string]Upstream
	fallback  *RoundRobinBalancer
}

// NewHashBalancer 创建一致性哈希负载均衡器
func NewHashBalancer() *HashBalancer {
	return &HashBalancer{
		upstreams: make(map[string]Upstream),
		fallback:  NewRoundRobinBalancer(),
	}
}

// Select 根据 context 中的标识符选择上游
func (b *HashBalancer) Select(ctx context.Context, upstreams []Upstream) (Upstream, error) {
	if len(upstreams) == 0 {
		return Upstream{}, ErrEmptyUpstreams
	}

	identifier, ok := IdentifierFromContext(ctx)
	if !ok {
		return b.fallback.Select(ctx, upstreams)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.syncRing(upstreams)

	located := b.ring.LocateKey([]byte(identifier))
	if located == nil {
		return Upstream{}, ErrNoAvailableUpstream
	}
	upstream, exists := b.upstreams[located.String()]
	if !exists {
		return Upstream{}, ErrNoAvailableUpstream
	}
	return upstream, nil
}

// syncRing 上游集合变化时重建哈希环
func (b *HashBalancer) syncRing(upstreams []Upstream) {
	names := make([]string, 0, len(upstreams))
	for _, upstream := range upstreams {
		names = append(names, upstream.Name)
	}
	slices.Sort(names)
	signature := strings.Join(names, ",")

	if b.ring != nil && signature == b.members {
		return
	}

	members := make([]consistent.Member, 0, len(upstreams))
	b.upstreams = make(map[string]Upstream, len(upstreams))
	for _, upstream := range upstreams {
		members = append(members, member(upstream.Name))
		b.upstreams[upstream.Name] = upstream
	}

	b.ring = consistent.New(members, consistent.Config{
		Hasher:            hasher{},
		PartitionCount:    hashPartitionCount,
		ReplicationFactor: hashReplicationFactor,
		Load:              hashLoad,
	})
	b.members = signature
}

func (b *HashBalancer) Type() string {
	return constants.BalanceHash
}
