package store

import "net/netip"

// inetContains backs the inet_contains(prefix, ip) sql function: true when
// ip is a valid address inside prefix. NULL ips arrive as a nil []byte.
func inetContains(prefix string, ip interface{}) bool {
	var raw string
	switch v := ip.(type) {
	case string:
		raw = v
	case []byte:
		if v == nil {
			return false
		}
		raw = string(v)
	default:
		return false
	}

	p, err := netip.ParsePrefix(prefix)
	if err != nil {
		return false
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return false
	}
	return p.Contains(addr.Unmap().WithZone(""))
}
