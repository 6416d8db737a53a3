// Package config implements the properties loader of §6: a JSON-backed
// Config struct modeled on internal/cerera/config/config.go's
// marshal-to/read-from-config.json pattern, generalized to this spec's
// recognized keys (address, base_port, initial_membership, reconnect_time,
// leader_timeout, crypto_name, truststore/keystore paths).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"

	"github.com/vavilov/consensus/internal/vavilov/seqn"
	"github.com/vavilov/consensus/internal/vavilov/vaverr"
)

// Config is the node's properties file (§6), unmarshaled from config.json.
type Config struct {
	Address  string `json:"address"`
	BasePort int    `json:"base_port"`
	// InitialMembership is the ordered "addr:port"/multiaddr list view.New
	// uses to build the replica set; entry order fixes each replica's index
	// into the membership list, but the initial leader is members[viewNumber
	// % n] with viewNumber starting at 1 (§4.8), i.e. members[1 % n] — not
	// index 0.
	InitialMembership []string `json:"initial_membership"`
	ReconnectTimeMS   int      `json:"reconnect_time"`
	LeaderTimeoutMS   int      `json:"leader_timeout"`
	CryptoName        string   `json:"crypto_name"`
	TruststorePath    string   `json:"truststore_path"`
	KeystorePath      string   `json:"keystore_path"`
	KeystorePassword  string   `json:"keystore_password"`
}

// Default mirrors GenerageConfig's written-on-first-run defaults, scaled to
// a single-box four-replica development cluster.
func Default() *Config {
	return &Config{
		Address:  "127.0.0.1",
		BasePort: 7400,
		InitialMembership: []string{
			"127.0.0.1:7400",
			"127.0.0.1:7401",
			"127.0.0.1:7402",
			"127.0.0.1:7403",
		},
		ReconnectTimeMS:  2000,
		LeaderTimeoutMS:  6000,
		CryptoName:       "node-a",
		TruststorePath:   "truststore.json",
		KeystorePath:     "keystore.pem",
		KeystorePassword: "",
	}
}

// Load reads Config from path, writing and returning Default() if the file
// does not yet exist — the same fall-through GenerageConfig uses for
// config.json.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.WriteTo(path); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, vaverr.NewConfigError(path, err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, vaverr.NewConfigError(path, err)
	}
	return &cfg, nil
}

// WriteTo marshals Config back to path as indented JSON, the same shape
// WriteConfigToFile uses for config.json.
func (c *Config) WriteTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return vaverr.NewConfigError(path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return vaverr.NewConfigError(path, err)
	}
	return nil
}

// ReconnectTime returns RECONNECT_TIME as a time.Duration.
func (c *Config) ReconnectTime() time.Duration {
	return time.Duration(c.ReconnectTimeMS) * time.Millisecond
}

// LeaderTimeout returns LEADER_TIMEOUT as a time.Duration.
func (c *Config) LeaderTimeout() time.Duration {
	return time.Duration(c.LeaderTimeoutMS) * time.Millisecond
}

// Members parses initial_membership into the ordered Host list view.New
// consumes (§6); the initial leader it derives is members[1 % n], not
// index 0 — see the InitialMembership field doc. Each entry may be a plain
// "ip:port" pair or a multiaddr (e.g. "/ip4/127.0.0.1/tcp/7400"), letting a
// deployment mix transports the way the teacher's host.go accepts either
// form via go-multiaddr/manet. A malformed entry is a fatal ConfigError
// per §7.
func (c *Config) Members() ([]seqn.Host, error) {
	if len(c.InitialMembership) == 0 {
		return nil, vaverr.NewConfigError("initial_membership", fmt.Errorf("empty membership list"))
	}
	hosts := make([]seqn.Host, 0, len(c.InitialMembership))
	for _, entry := range c.InitialMembership {
		h, err := parseMember(entry)
		if err != nil {
			return nil, vaverr.NewConfigError("initial_membership", err)
		}
		hosts = append(hosts, h)
	}
	return hosts, nil
}

func parseMember(entry string) (seqn.Host, error) {
	if strings.HasPrefix(entry, "/") {
		addr, err := multiaddr.NewMultiaddr(entry)
		if err != nil {
			return seqn.Host{}, err
		}
		network, hostport, err := manet.DialArgs(addr)
		if err != nil {
			return seqn.Host{}, err
		}
		if network != "tcp" && network != "tcp4" && network != "tcp6" {
			return seqn.Host{}, fmt.Errorf("unsupported multiaddr network %q", network)
		}
		return seqn.ParseHost(hostport)
	}
	return seqn.ParseHost(entry)
}
