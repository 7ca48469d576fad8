package logengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIPExtractor_ExtractIPs tests ExtractIPs method
// TestIPExtractor_ExtractIPs 测试 ExtractIPs 方法
func TestIPExtractor_ExtractIPs(t *testing.T) {
	extractor := NewIPExtractor()

	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "Single IPv4", input: "192.168.1.1", expected: 1},
		{name: "Multiple IPv4", input: "192.168.1.1 and 10.0.0.1", expected: 2},
		{name: "IPv6 address", input: "2001:db8::1", expected: 1},
		{name: "No IP", input: "hello world", expected: 0},
		{name: "Duplicate IPs", input: "192.168.1.1 and 192.168.1.1", expected: 1},
		{name: "Invalid IP", input: "999.999.999.999", expected: 0},
		{name: "IP with port is not a single IP", input: "192.168.1.1:8080", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, extractor.ExtractIPs(tt.input), tt.expected)
		})
	}
}

// TestIPExtractor_FirstIP tests FirstIP method
// TestIPExtractor_FirstIP 测试 FirstIP 方法
func TestIPExtractor_FirstIP(t *testing.T) {
	extractor := NewIPExtractor()

	addr, ok := extractor.FirstIP("from 10.0.0.1 via 10.0.0.2")
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.1", addr.String())

	_, ok = extractor.FirstIP("nothing here")
	assert.False(t, ok)
}

// TestIPExtractor_ClientAfter tests client extraction after a key
// TestIPExtractor_ClientAfter 测试提取 key 之后的客户端 IP
func TestIPExtractor_ClientAfter(t *testing.T) {
	extractor := NewIPExtractor()

	tests := []struct {
		line string
		key  string
		want string
		ok   bool
	}{
		{"client 192.0.2.7:5555", "client ", "192.0.2.7", true},
		{"failed, client: 192.0.2.1, server: x", "client: ", "192.0.2.1", true},
		{"client: 2001:db8::5, server: x", "client: ", "2001:db8::5", true},
		{"client [::1]:80", "client ", "::1", true},
		{"client: unknown", "client: ", "", false},
		{"no key here", "client: ", "", false},
	}
	for _, tt := range tests {
		got, ok := extractor.ClientAfter(tt.line, tt.key)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}
