package utils

import (
	"fmt"
	"net"
	"strings"
)

// MaskPhoneNumber hides the middle of a phone number for logging
//
// Examples:
//   - "+15550001111" -> "+15****1111"
//   - "123456" -> "****"
func MaskPhoneNumber(phone string) string {
	if len(phone) <= 6 {
		return "****"
	}
	return phone[:3] + "****" + phone[len(phone)-4:]
}

// KeyPrefix returns the first 8 characters of an API key, the only part
// ever written to logs
func KeyPrefix(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "..."
}

// ParseTrustedProxies parses proxy addresses and CIDR ranges
func ParseTrustedProxies(entries []string) ([]*net.IPNet, error) {
	proxies := make([]*net.IPNet, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			_, network, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			proxies = append(proxies, network)
			continue
		}

		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", entry)
		}
		bits := 8 * net.IPv6len
		if ip4 := ip.To4(); ip4 != nil {
			ip, bits = ip4, 8*net.IPv4len
		}
		proxies = append(proxies, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return proxies, nil
}

func isTrusted(addr string, proxies []*net.IPNet) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, network := range proxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP resolves the caller address. X-Forwarded-For is read only when the
// peer is a trusted proxy, and then the rightmost hop outside the trusted set
// is the client.
func ClientIP(forwardedFor, remoteAddr string, proxies []*net.IPNet) string {
	peer := remoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		peer = host
	}

	if forwardedFor == "" || !isTrusted(peer, proxies) {
		return peer
	}

	client := peer
	hops := strings.Split(forwardedFor, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		client = hop
		if !isTrusted(hop, proxies) {
			break
		}
	}
	return client
}
