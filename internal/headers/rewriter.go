// Package headers 按上游配置改写转发请求的头部
package headers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/constants"
)

// 头部操作相关错误定义
var (
	ErrInvalidOperation = errors.New("invalid header operation")
	ErrEmptyHeaderKey   = errors.New("header key cannot be empty")
)

type opKind uint8

const (
	opInsert opKind = iota
	opReplace
	opRemove
)

type rule struct {
	kind  opKind
	key   string
	value string
}

// Rewriter 代表一组按顺序执行的头部改写规则，创建后只读，可并发使用
type Rewriter struct {
	rules []rule
}

// New 编译头部操作配置，ops 为空时返回 nil（Apply 对 nil 安全）
func New(ops []config.HeaderOpConfig) (*Rewriter, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	rules := make([]rule, 0, len(ops))
	for i, op := range ops {
		key := http.CanonicalHeaderKey(strings.TrimSpace(op.Key))
		if key == "" {
			return nil, fmt.Errorf("header op #%d: %w", i, ErrEmptyHeaderKey)
		}

		var kind opKind
		switch strings.ToLower(op.Op) {
		case constants.HeaderOpInsert:
			kind = opInsert
		case constants.HeaderOpReplace:
			kind = opReplace
		case constants.HeaderOpRemove:
			kind = opRemove
		default:
			return nil, fmt.Errorf("header op #%d: %w: %q", i, ErrInvalidOperation, op.Op)
		}

		rules = append(rules, rule{kind: kind, key: key, value: op.Value})
	}

	return &Rewriter{rules: rules}, nil
}

// Apply 依次执行改写规则
// insert 仅在头部不存在时写入；replace 总是覆盖；remove 删除全部同名值
func (r *Rewriter) Apply(h http.Header) {
	if r == nil || h == nil {
		return
	}
	for _, rl := range r.rules {
		switch rl.kind {
		case opInsert:
			if _, exists := h[rl.key]; !exists {
				h.Set(rl.key, rl.value)
			}
		case opReplace:
			h.Set(rl.key, rl.value)
		case opRemove:
			h.Del(rl.key)
		}
	}
}

// Len 返回规则数量
func (r *Rewriter) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}
