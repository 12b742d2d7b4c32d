// Package config defines the node's TOML configuration surface (spec §6)
// and the one concrete load path (`viper` configured for TOML via
// `go-toml/v2`) needed to start a node from a file on disk. A pluggable,
// hot-reloadable config subsystem is out of scope; this is the one struct
// and one loader a CLI command needs.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Role selects which of the three NodeContext variants the CLI builds.
type Role string

const (
	RoleClient  Role = "client"
	RoleMiner   Role = "miner"
	RoleStorage Role = "storage"
)

// ConflictCheck selects the pipeline's conflict policy.
type ConflictCheck string

const (
	ConflictSSI ConflictCheck = "ssi"
	ConflictOCC ConflictCheck = "occ"
)

// ConsensusKind selects the consensus backend.
type ConsensusKind string

const (
	ConsensusPoW  ConsensusKind = "pow"
	ConsensusRaft ConsensusKind = "raft"
)

type RoleConfig struct {
	Role Role `mapstructure:"role"`
}

type ChainConfig struct {
	ConflictCheck ConflictCheck `mapstructure:"conflict_check"`
	StateLen      int           `mapstructure:"state_len"`
	Consensus     ConsensusKind `mapstructure:"consensus"`
}

type MinerConfig struct {
	MaxTxs            int  `mapstructure:"max_txs"`
	MinTxs            int  `mapstructure:"min_txs"`
	MaxBlockIntervalMS int `mapstructure:"max_block_interval_ms"`
	CompressTrie      bool `mapstructure:"compress_trie"`
}

func (m MinerConfig) MaxBlockInterval() time.Duration {
	return time.Duration(m.MaxBlockIntervalMS) * time.Millisecond
}

type TEEConfig struct {
	APIKey   string `mapstructure:"api_key"`
	SPID     string `mapstructure:"spid"`
	Linkable bool   `mapstructure:"linkable"`
}

type NetworkConfig struct {
	Listen     string   `mapstructure:"listen"`
	HTTPListen string   `mapstructure:"http_listen"`
	Keypair    string   `mapstructure:"keypair"`
	MDNS       bool     `mapstructure:"mdns"`
	Peers      []string `mapstructure:"peers"`
}

type PoWConfig struct {
	InitDiff uint64 `mapstructure:"init_diff"`
}

type RaftConfig struct {
	ElectionTimeoutMinMS    int    `mapstructure:"election_timeout_min"`
	ElectionTimeoutMaxMS    int    `mapstructure:"election_timeout_max"`
	HeartbeatIntervalMS     int    `mapstructure:"heartbeat_interval"`
	MaxPayloadEntries       int    `mapstructure:"max_payload_entries"`
	ReplicationLagThreshold uint64 `mapstructure:"replication_lag_threshold"`
	SnapshotPolicyLogsSinceLast uint64 `mapstructure:"snapshot_policy_logs_since_last"`
	SnapshotMaxChunkSize    int    `mapstructure:"snapshot_max_chunk_size"`
}

// Config is the root TOML document spec §6 describes, one section per
// table.
type Config struct {
	Role    RoleConfig    `mapstructure:"role"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Miner   MinerConfig   `mapstructure:"miner"`
	TEE     TEEConfig     `mapstructure:"tee"`
	Network NetworkConfig `mapstructure:"network"`
	PoW     PoWConfig     `mapstructure:"pow"`
	Raft    RaftConfig    `mapstructure:"raft"`
}

// defaults mirrors spec §6's stated defaults so a config file only has to
// set the options it cares about.
func defaults(v *viper.Viper) {
	v.SetDefault("chain.state_len", 64)
	v.SetDefault("chain.conflict_check", ConflictSSI)
	v.SetDefault("chain.consensus", ConsensusPoW)
	v.SetDefault("pow.init_diff", 5_000_000)
}

// Load reads and validates the TOML config at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	defaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the per-field constraints spec §6 states (e.g.
// min_txs > 0), returning the first failing check's error for the CLI to
// report as exit code 2.
func (c *Config) Validate() error {
	switch c.Role.Role {
	case RoleClient, RoleMiner, RoleStorage:
	default:
		return fmt.Errorf("config: role.role must be one of client|miner|storage, got %q", c.Role.Role)
	}
	switch c.Chain.ConflictCheck {
	case ConflictSSI, ConflictOCC:
	default:
		return fmt.Errorf("config: chain.conflict_check must be ssi|occ, got %q", c.Chain.ConflictCheck)
	}
	switch c.Chain.Consensus {
	case ConsensusPoW, ConsensusRaft:
	default:
		return fmt.Errorf("config: chain.consensus must be pow|raft, got %q", c.Chain.Consensus)
	}
	if c.Miner.MinTxs <= 0 {
		return fmt.Errorf("config: miner.min_txs must be > 0, got %d", c.Miner.MinTxs)
	}
	if c.Miner.MaxTxs < c.Miner.MinTxs {
		return fmt.Errorf("config: miner.max_txs (%d) must be >= miner.min_txs (%d)", c.Miner.MaxTxs, c.Miner.MinTxs)
	}
	return nil
}
