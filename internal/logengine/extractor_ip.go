package logengine

import (
	"net/netip"
	"strings"

	"github.com/netxfw/gunlog/internal/utils/iputil"
)

// IPExtractor extracts IP addresses from text without regex.
// IPExtractor 无需正则即可从文本中提取 IP 地址。
type IPExtractor struct{}

// NewIPExtractor creates a new IPExtractor.
func NewIPExtractor() *IPExtractor {
	return &IPExtractor{}
}

// ExtractIPs finds all valid unique IPs in a string.
func (e *IPExtractor) ExtractIPs(line string) []netip.Addr {
	var ips []netip.Addr
	scanIPs(line, func(addr netip.Addr) bool {
		ips = append(ips, addr)
		return true
	})
	return uniqueIPs(ips)
}

// FirstIP returns the first valid IP in line.
// FirstIP 返回 line 中第一个有效 IP。
func (e *IPExtractor) FirstIP(line string) (netip.Addr, bool) {
	var found netip.Addr
	scanIPs(line, func(addr netip.Addr) bool {
		found = addr
		return false
	})
	return found, found.IsValid()
}

// ClientAfter returns the client IP that follows key in line, e.g. "client: "
// in nginx error lines. The value may carry a port.
// ClientAfter 返回 line 中 key 之后的客户端 IP。
func (e *IPExtractor) ClientAfter(line, key string) (string, bool) {
	idx := strings.Index(line, key)
	if idx < 0 {
		return "", false
	}
	rest := line[idx+len(key):]
	if end := strings.IndexAny(rest, ", \t]"); end >= 0 {
		rest = rest[:end]
	}
	if addr, err := iputil.ParseAddr(rest); err == nil {
		return addr.String(), true
	}
	if addr, ok := e.FirstIP(rest); ok {
		return addr.Unmap().String(), true
	}
	return "", false
}

func scanIPs(line string, fn func(netip.Addr) bool) {
	start := -1
	for i := 0; i <= len(line); i++ {
		if i < len(line) && isIPChar(line[i]) {
			if start == -1 {
				start = i
			}
			continue
		}
		if start == -1 {
			continue
		}
		candidate := line[start:i]
		start = -1
		// Min length for a valid IP, e.g. "::1"
		if len(candidate) < 3 {
			continue
		}
		if addr, err := netip.ParseAddr(candidate); err == nil {
			if !fn(addr) {
				return
			}
		}
	}
}

func isIPChar(b byte) bool {
	return (b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'f') ||
		(b >= 'A' && b <= 'F') ||
		b == '.' || b == ':'
}

func uniqueIPs(ips []netip.Addr) []netip.Addr {
	if len(ips) <= 1 {
		return ips
	}
	// In-place deduplication (O(N^2) is fast for small N)
	uniqCount := 0
	for i := 0; i < len(ips); i++ {
		duplicate := false
		for j := 0; j < uniqCount; j++ {
			if ips[i] == ips[j] {
				duplicate = true
				break
			}
		}
		if !duplicate {
			ips[uniqCount] = ips[i]
			uniqCount++
		}
	}
	return ips[:uniqCount]
}
