package logengine

import (
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var counterBase = time.Date(2025, time.April, 10, 13, 0, 0, 0, time.UTC)

// TestNewCounter tests NewCounter function
// TestNewCounter 测试 NewCounter 函数
func TestNewCounter(t *testing.T) {
	t.Run("Default window", func(t *testing.T) {
		assert.Equal(t, 60, NewCounter(0).WindowSeconds())
	})

	t.Run("Custom window", func(t *testing.T) {
		assert.Equal(t, 300, NewCounter(300).WindowSeconds())
	})

	t.Run("Negative window", func(t *testing.T) {
		assert.Equal(t, 60, NewCounter(-1).WindowSeconds())
	})
}

// TestCounter_Inc tests that Inc returns the running window count
// TestCounter_Inc 测试 Inc 返回窗口内的计数
func TestCounter_Inc(t *testing.T) {
	c := NewCounter(60)
	ip := netip.MustParseAddr("192.0.2.1")

	for i := 1; i <= 5; i++ {
		assert.Equal(t, i, c.Inc(ip, counterBase.Add(time.Duration(i)*time.Second)))
	}
	assert.Equal(t, 5, c.Count(ip, counterBase.Add(5*time.Second)))
	assert.Equal(t, 0, c.Count(netip.MustParseAddr("10.0.0.1"), counterBase))
}

// TestCounter_SlidingWindow tests that old hits fall out of the window
// TestCounter_SlidingWindow 测试旧命中滑出窗口
func TestCounter_SlidingWindow(t *testing.T) {
	c := NewCounter(60)
	ip := netip.MustParseAddr("192.0.2.1")

	c.Inc(ip, counterBase)
	c.Inc(ip, counterBase.Add(30*time.Second))
	assert.Equal(t, 2, c.Count(ip, counterBase.Add(30*time.Second)))

	// the first hit is exactly one window old
	assert.Equal(t, 2, c.Inc(ip, counterBase.Add(60*time.Second)))
	assert.Equal(t, 1, c.Count(ip, counterBase.Add(90*time.Second)))

	// a gap longer than the window resets everything
	assert.Equal(t, 1, c.Inc(ip, counterBase.Add(10*time.Minute)))
}

// TestCounter_OutOfOrder tests slightly out-of-order record times
// TestCounter_OutOfOrder 测试轻微乱序的记录时间
func TestCounter_OutOfOrder(t *testing.T) {
	c := NewCounter(60)
	ip := netip.MustParseAddr("192.0.2.1")

	c.Inc(ip, counterBase.Add(10*time.Second))
	assert.Equal(t, 2, c.Inc(ip, counterBase.Add(5*time.Second)))

	// older than the window relative to the newest hit: ignored
	assert.Equal(t, 2, c.Inc(ip, counterBase.Add(-time.Hour)))
}

// TestCounter_IPv6 tests counter with IPv6 addresses
// TestCounter_IPv6 测试 IPv6 地址的计数器
func TestCounter_IPv6(t *testing.T) {
	c := NewCounter(60)

	ip1 := netip.MustParseAddr("2001:db8::1")
	ip2 := netip.MustParseAddr("2001:db8::2")

	c.Inc(ip1, counterBase)
	c.Inc(ip1, counterBase)
	c.Inc(ip2, counterBase)

	assert.Equal(t, 2, c.Count(ip1, counterBase))
	assert.Equal(t, 1, c.Count(ip2, counterBase))
	assert.Equal(t, 2, c.Len())
}

// TestCounter_Cleanup tests Cleanup method
// TestCounter_Cleanup 测试 Cleanup 方法
func TestCounter_Cleanup(t *testing.T) {
	c := NewCounter(60)
	c.Inc(netip.MustParseAddr("192.0.2.1"), counterBase)
	c.Inc(netip.MustParseAddr("192.0.2.2"), counterBase.Add(50*time.Second))

	c.Cleanup(counterBase.Add(70 * time.Second))
	assert.Equal(t, 1, c.Len())
}

// TestCounter_ConcurrentAccess tests concurrent access
// TestCounter_ConcurrentAccess 测试并发访问
func TestCounter_ConcurrentAccess(t *testing.T) {
	c := NewCounter(60)
	ip := netip.MustParseAddr("192.0.2.1")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc(ip, counterBase)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, c.Count(ip, counterBase))
}
