package iputil

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// ParseAddr parses a client address as logged by a web server.
// Accepted forms: "1.2.3.4", "1.2.3.4:5678", "[::1]:80", "::1", and an
// X-Forwarded-For list, of which the first entry is used.
// ParseAddr 解析 Web 服务器记录的客户端地址，支持带端口与 X-Forwarded-For 列表形式。
func ParseAddr(input string) (netip.Addr, error) {
	s := strings.TrimSpace(input)
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if s == "" || s == "-" {
		return netip.Addr{}, fmt.Errorf("empty address")
	}

	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap(), nil
	}

	// ip:port or [ipv6]:port
	// ip:port 或 [ipv6]:port 形式
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid address: %s", input)
	}
	if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		return netip.Addr{}, fmt.Errorf("invalid port in address: %s", input)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid address: %s", input)
	}
	return addr.Unmap(), nil
}

// IsValidIP checks if the string is a valid IP address.
// IsValidIP 检查字符串是否为有效的 IP 地址。
func IsValidIP(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

// IsInternal reports whether ip is private, loopback, link-local or multicast.
// Unparseable input is treated as external.
// IsInternal 判断 IP 是否为私有、回环、链路本地或组播地址；无法解析的输入视为外部地址。
func IsInternal(ip string) bool {
	addr, err := ParseAddr(ip)
	if err != nil {
		return false
	}
	return addr.IsPrivate() ||
		addr.IsLoopback() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsMulticast()
}
