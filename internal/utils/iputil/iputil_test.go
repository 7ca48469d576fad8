package iputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestParseAddr tests parsing of logged client addresses
// TestParseAddr 测试解析日志中的客户端地址
func TestParseAddr(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "IPv4", input: "192.0.2.1", want: "192.0.2.1"},
		{name: "IPv4 with port", input: "192.0.2.1:5678", want: "192.0.2.1"},
		{name: "IPv6", input: "2001:db8::1", want: "2001:db8::1"},
		{name: "IPv6 with port", input: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "IPv4-mapped IPv6", input: "::ffff:192.0.2.9", want: "192.0.2.9"},
		{name: "forwarded list", input: "203.0.113.5, 10.0.0.1", want: "203.0.113.5"},
		{name: "dash", input: "-", wantErr: true},
		{name: "hostname", input: "example.com", wantErr: true},
		{name: "bad port", input: "192.0.2.1:99999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseAddr(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, addr.String())
		})
	}
}

// TestIsInternal tests internal address detection
// TestIsInternal 测试内部地址检测
func TestIsInternal(t *testing.T) {
	internal := []string{"10.1.2.3", "172.16.0.1", "192.168.1.1", "127.0.0.1", "::1", "169.254.1.1", "fe80::1", "224.0.0.1"}
	for _, ip := range internal {
		assert.True(t, IsInternal(ip), ip)
	}

	external := []string{"8.8.8.8", "192.0.2.1", "2001:4860:4860::8888", "not-an-ip", ""}
	for _, ip := range external {
		assert.False(t, IsInternal(ip), ip)
	}
}

// TestIsValidIP tests IP validation
// TestIsValidIP 测试 IP 校验
func TestIsValidIP(t *testing.T) {
	assert.True(t, IsValidIP("192.0.2.1"))
	assert.True(t, IsValidIP("2001:db8::1"))
	assert.False(t, IsValidIP("999.1.1.1"))
	assert.False(t, IsValidIP("192.0.2.1/24"))
}
