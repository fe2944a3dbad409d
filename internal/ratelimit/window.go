package ratelimit

// decision 代表滑动窗口求值的结果，时间单位为毫秒
type decision struct {
	allowed   bool
	remaining int
	reset     int64
}

// slide 在 now 时刻对窗口求值：只保留 (now-interval, now] 内的时间戳，
// 未达到 limit 时追加 now。被拒绝的请求不会写入时间戳。
func slide(window []int64, now, interval int64, limit int) ([]int64, decision) {
	recent := prune(window, now-interval)

	if len(recent) >= limit {
		return recent, decision{
			allowed:   false,
			remaining: 0,
			reset:     recent[0] + interval,
		}
	}

	recent = append(recent, now)
	return recent, decision{
		allowed:   true,
		remaining: limit - len(recent),
		reset:     now + interval,
	}
}

// prune 返回 window 中严格大于 cutoff 的时间戳，结果为新分配的切片
func prune(window []int64, cutoff int64) []int64 {
	kept := make([]int64, 0, len(window)+1)
	for _, ts := range window {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}
	return kept
}
