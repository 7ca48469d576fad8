// Package ipmerge folds client addresses into a short CIDR list, used for the
// block-list suggestion of the security report.
// Package ipmerge 将客户端地址合并为简短的 CIDR 列表，用于安全报表的封禁建议。
package ipmerge

import (
	"encoding/binary"
	"math/bits"
	"net/netip"
	"slices"
)

// Merge returns the minimal CIDR list covering the given addresses and
// prefixes, IPv4 before IPv6, each in address order. Entries that are neither
// an address nor a prefix are skipped.
// Merge 返回覆盖给定地址与网段的最小 CIDR 列表，IPv4 在前；无效条目被跳过。
func Merge(entries []string) []string {
	var v4, v6 []span
	for _, e := range entries {
		p, ok := parse(e)
		if !ok {
			continue
		}
		s := span{first: p.Addr(), last: lastAddr(p)}
		if s.first.Is4() {
			v4 = append(v4, s)
		} else {
			v6 = append(v6, s)
		}
	}

	var out []string
	for _, s := range append(mergeSpans(v4), mergeSpans(v6)...) {
		for _, p := range s.prefixes() {
			out = append(out, p.String())
		}
	}
	return out
}

// Summarize merges entries like Merge, then replaces every group of at least
// threshold entries sharing an IPv4 /v4Bits or IPv6 /v6Bits network with that
// network. A threshold below 2 disables grouping.
// Summarize 先按 Merge 合并，再将同一 IPv4 /v4Bits 或 IPv6 /v6Bits 网段内
// 不少于 threshold 个的条目替换为该网段；threshold 小于 2 时不分组。
func Summarize(entries []string, threshold, v4Bits, v6Bits int) []string {
	merged := Merge(entries)
	if threshold < 2 {
		return merged
	}
	v4Bits = min(max(v4Bits, 0), 32)
	v6Bits = min(max(v6Bits, 0), 128)

	groups := make(map[netip.Prefix][]string)
	var order []netip.Prefix
	var out []string
	for _, c := range merged {
		p := netip.MustParsePrefix(c)
		parentBits := v4Bits
		if !p.Addr().Is4() {
			parentBits = v6Bits
		}
		if p.Bits() <= parentBits {
			out = append(out, c)
			continue
		}
		parent, _ := p.Addr().Prefix(parentBits)
		if _, seen := groups[parent]; !seen {
			order = append(order, parent)
		}
		groups[parent] = append(groups[parent], c)
	}
	for _, parent := range order {
		if children := groups[parent]; len(children) >= threshold {
			out = append(out, parent.String())
		} else {
			out = append(out, children...)
		}
	}
	return Merge(out)
}

func parse(entry string) (netip.Prefix, bool) {
	if p, err := netip.ParsePrefix(entry); err == nil {
		return p.Masked(), true
	}
	a, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, false
	}
	a = a.Unmap()
	return netip.PrefixFrom(a, a.BitLen()), true
}

// span is an inclusive address range of one family.
type span struct {
	first, last netip.Addr
}

func mergeSpans(spans []span) []span {
	if len(spans) == 0 {
		return nil
	}
	slices.SortFunc(spans, func(a, b span) int { return a.first.Compare(b.first) })

	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		cur := &merged[len(merged)-1]
		next := cur.last.Next()
		if s.first.Compare(cur.last) <= 0 || (next.IsValid() && s.first == next) {
			if cur.last.Less(s.last) {
				cur.last = s.last
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// prefixes splits the span into the fewest aligned prefixes.
func (s span) prefixes() []netip.Prefix {
	var out []netip.Prefix
	start := s.first
	for {
		size := start.BitLen()
		hostBits := min(trailingZeros(start), size)
		for ; hostBits > 0; hostBits-- {
			if lastAddr(netip.PrefixFrom(start, size-hostBits)).Compare(s.last) <= 0 {
				break
			}
		}
		p := netip.PrefixFrom(start, size-hostBits)
		out = append(out, p)
		end := lastAddr(p)
		if end.Compare(s.last) >= 0 {
			return out
		}
		start = end.Next()
	}
}

// lastAddr returns the highest address of p.
func lastAddr(p netip.Prefix) netip.Addr {
	a := p.Masked().Addr()
	if a.Is4() {
		b := a.As4()
		v := binary.BigEndian.Uint32(b[:]) | hostMask32(32-p.Bits())
		binary.BigEndian.PutUint32(b[:], v)
		return netip.AddrFrom4(b)
	}
	b := a.As16()
	hostBits := 128 - p.Bits()
	lo := binary.BigEndian.Uint64(b[8:]) | hostMask64(min(hostBits, 64))
	hi := binary.BigEndian.Uint64(b[:8]) | hostMask64(max(hostBits-64, 0))
	binary.BigEndian.PutUint64(b[:8], hi)
	binary.BigEndian.PutUint64(b[8:], lo)
	return netip.AddrFrom16(b)
}

func hostMask32(n int) uint32 {
	if n >= 32 {
		return ^uint32(0)
	}
	return (uint32(1) << n) - 1
}

func hostMask64(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}

func trailingZeros(a netip.Addr) int {
	if a.Is4() {
		b := a.As4()
		return bits.TrailingZeros32(binary.BigEndian.Uint32(b[:]))
	}
	b := a.As16()
	if lo := binary.BigEndian.Uint64(b[8:]); lo != 0 {
		return bits.TrailingZeros64(lo)
	}
	return 64 + bits.TrailingZeros64(binary.BigEndian.Uint64(b[:8]))
}
