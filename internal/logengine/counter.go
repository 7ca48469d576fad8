package logengine

import (
	"math"
	"net/netip"
	"sync"
	"time"
)

const (
	shardsCount = 64
)

// Counter is a per-IP sliding window counter driven by record timestamps
// rather than the wall clock, so historical logs replay the same way.
// Counter 为按记录时间驱动的每 IP 滑动窗口计数器。
type Counter struct {
	shards        [shardsCount]*counterShard
	windowSeconds int
}

type counterShard struct {
	sync.RWMutex
	// map ip -> stats
	counts map[netip.Addr]*ipStats
}

type ipStats struct {
	buckets      []uint16 // one bucket per second of the window
	lastIdx      int      // bucket index of lastUnixTime
	lastUnixTime int64    // newest record time seen for this IP
}

// NewCounter creates a Counter with the given window in seconds (default 60).
// NewCounter 创建窗口为 window 秒的计数器（默认 60）。
func NewCounter(window int) *Counter {
	if window <= 0 {
		window = 60
	}
	c := &Counter{windowSeconds: window}
	for i := 0; i < shardsCount; i++ {
		c.shards[i] = &counterShard{
			counts: make(map[netip.Addr]*ipStats),
		}
	}
	return c
}

// WindowSeconds returns the window length.
func (c *Counter) WindowSeconds() int {
	return c.windowSeconds
}

func (c *Counter) getShard(ip netip.Addr) *counterShard {
	var h uint64
	if ip.Is4() {
		b := ip.As4()
		h = uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24
	} else {
		b := ip.As16()
		// XOR fold for IPv6
		h = uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24
		h ^= uint64(b[4]) | uint64(b[5])<<8 | uint64(b[6])<<16 | uint64(b[7])<<24
		h ^= uint64(b[8]) | uint64(b[9])<<8 | uint64(b[10])<<16 | uint64(b[11])<<24
		h ^= uint64(b[12]) | uint64(b[13])<<8 | uint64(b[14])<<16 | uint64(b[15])<<24
	}
	return c.shards[h%shardsCount]
}

// Inc records a hit for ip at time at and returns the number of hits in the
// window ending at the newest time seen for ip. Hits older than the window
// relative to that time are ignored.
// Inc 记录 ip 在 at 时刻的一次命中，并返回窗口内的命中数。
func (c *Counter) Inc(ip netip.Addr, at time.Time) int {
	shard := c.getShard(ip)
	now := at.Unix()
	mw := int64(c.windowSeconds)

	shard.Lock()
	defer shard.Unlock()

	stats, ok := shard.counts[ip]
	if !ok {
		stats = &ipStats{
			buckets:      make([]uint16, c.windowSeconds),
			lastUnixTime: now,
			lastIdx:      int(mod(now, mw)),
		}
		shard.counts[ip] = stats
	}

	if now > stats.lastUnixTime {
		diff := now - stats.lastUnixTime
		if diff >= mw {
			clear(stats.buckets)
		} else {
			// clear the buckets skipped between the last hit and now
			for i := int64(1); i <= diff; i++ {
				stats.buckets[(stats.lastIdx+int(i))%c.windowSeconds] = 0
			}
		}
		stats.lastUnixTime = now
		stats.lastIdx = int(mod(now, mw))
	} else if now <= stats.lastUnixTime-mw {
		return sum(stats.buckets)
	}

	idx := int(mod(now, mw))
	if stats.buckets[idx] < math.MaxUint16 {
		stats.buckets[idx]++
	}
	return sum(stats.buckets)
}

// Count returns the hits for ip in the window ending at time at.
// Count 返回 ip 在以 at 结束的窗口内的命中数。
func (c *Counter) Count(ip netip.Addr, at time.Time) int {
	shard := c.getShard(ip)
	shard.RLock()
	defer shard.RUnlock()

	stats, ok := shard.counts[ip]
	if !ok {
		return 0
	}

	now := at.Unix()
	mw := int64(c.windowSeconds)
	if now-stats.lastUnixTime >= mw {
		return 0
	}

	total := 0
	for i := int64(0); i < mw; i++ {
		t := now - i
		if t > stats.lastUnixTime {
			continue
		}
		if t <= stats.lastUnixTime-mw {
			break
		}
		total += int(stats.buckets[mod(t, mw)])
	}
	return total
}

// Len returns the number of tracked IPs.
func (c *Counter) Len() int {
	n := 0
	for _, shard := range c.shards {
		shard.RLock()
		n += len(shard.counts)
		shard.RUnlock()
	}
	return n
}

// Cleanup drops IPs whose newest hit is older than the window relative to at.
// Cleanup 清理相对 at 已超出窗口的 IP。
func (c *Counter) Cleanup(at time.Time) {
	now := at.Unix()
	mw := int64(c.windowSeconds)
	for _, shard := range c.shards {
		shard.Lock()
		for ip, stats := range shard.counts {
			if now-stats.lastUnixTime >= mw {
				delete(shard.counts, ip)
			}
		}
		shard.Unlock()
	}
}

func sum(buckets []uint16) int {
	total := 0
	for _, b := range buckets {
		total += int(b)
	}
	return total
}

// mod is a non-negative modulo for pre-1970 timestamps.
func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
