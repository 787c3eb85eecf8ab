package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Servers queried when the local resolver fails. Well-known public
// providers, raced concurrently.
var publicDNS = []string{
	"1.1.1.1",         // Cloudflare
	"1.0.0.1",         // Cloudflare
	"8.8.8.8",         // Google
	"8.8.4.4",         // Google
	"9.9.9.9",         // Quad9
	"149.112.112.112", // Quad9
}

// Lookup resolves a hostname to an IP address. Addresses that already are
// IP literals pass through unchanged, which is the common case for a
// signaling server on the local network. Otherwise the system resolver is
// tried first, with a public-DNS race as fallback.
func Lookup(address string) (string, error) {
	if net.ParseIP(address) != nil {
		return address, nil
	}

	ip, err := localLookupIP(address)
	if err == nil && ip != "" {
		return ip, nil
	}

	return remoteLookupWithRace(address)
}

// localLookupIP resolves via the local DNS configuration.
func localLookupIP(address string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	r := &net.Resolver{}
	ips, err := r.LookupHost(ctx, address)
	if err != nil {
		return "", err
	}
	return pickIP(ips)
}

// remoteLookupWithRace resolves by racing the public DNS servers and
// returning the first success.
func remoteLookupWithRace(address string) (string, error) {
	type result struct {
		ip  string
		err error
	}

	results := make(chan result, len(publicDNS))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, dnsServer := range publicDNS {
		go func(server string) {
			ip, err := remoteLookupIP(ctx, address, server)
			results <- result{ip: ip, err: err}
		}(dnsServer)
	}

	for range publicDNS {
		select {
		case res := <-results:
			if res.err == nil && res.ip != "" {
				return res.ip, nil
			}
		case <-ctx.Done():
			return "", fmt.Errorf("DNS lookup timed out for %s", address)
		}
	}

	return "", fmt.Errorf("failed to resolve %s: all public DNS servers failed", address)
}

// remoteLookupIP queries one specific DNS server.
func remoteLookupIP(ctx context.Context, address, dnsServer string) (string, error) {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := new(net.Dialer)
			return d.DialContext(ctx, network, net.JoinHostPort(dnsServer, "53"))
		},
	}

	ips, err := r.LookupHost(ctx, address)
	if err != nil {
		return "", err
	}
	return pickIP(ips)
}

// pickIP prefers IPv4 addresses.
func pickIP(ips []string) (string, error) {
	if len(ips) == 0 {
		return "", errors.New("no IP addresses found")
	}
	for _, ip := range ips {
		if net.ParseIP(ip).To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}
