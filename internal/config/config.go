package config

import (
	"fmt"
	"os"
)

// Default configuration values.
const (
	DefaultDomain = "localhost:8080"
	DefaultSTUN   = "stun:stun.l.google.com:19302"
	DefaultListen = ":8080"
)

// Config holds application configuration for both the server and the CLI
// participant.
type Config struct {
	// Domain is the signaling server host the CLI dials.
	Domain string

	// WebSocketURL is constructed from Domain.
	WebSocketURL string

	// STUNServer is the single STUN resolver used for ICE. No TURN relay
	// is configured.
	STUNServer string

	// ListenAddr is the address the signaling server binds.
	ListenAddr string

	// Secure selects wss:// over ws:// when dialing.
	Secure bool
}

// Options carries CLI flag overrides into Load.
type Options struct {
	Domain     string
	STUNServer string
	ListenAddr string
	Secure     bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := opts.Domain
	if domain == "" {
		domain = os.Getenv("VIDEOCHAT_DOMAIN")
	}
	if domain == "" {
		domain = DefaultDomain
	}

	stunServer := opts.STUNServer
	if stunServer == "" {
		stunServer = os.Getenv("STUN_SERVER")
	}
	if stunServer == "" {
		stunServer = DefaultSTUN
	}

	listenAddr := opts.ListenAddr
	if listenAddr == "" {
		listenAddr = os.Getenv("VIDEOCHAT_LISTEN")
	}
	if listenAddr == "" {
		listenAddr = DefaultListen
	}

	scheme := "ws"
	if opts.Secure {
		scheme = "wss"
	}

	return &Config{
		Domain:       domain,
		WebSocketURL: fmt.Sprintf("%s://%s/ws", scheme, domain),
		STUNServer:   stunServer,
		ListenAddr:   listenAddr,
		Secure:       opts.Secure,
	}, nil
}
