package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[role]
role = "miner"

[chain]
conflict_check = "occ"
state_len = 128
consensus = "raft"

[miner]
max_txs = 200
min_txs = 1
max_block_interval_ms = 500
compress_trie = true

[network]
listen = "0.0.0.0:30303"
http_listen = "127.0.0.1:8080"
peers = ["10.0.0.1:30303", "10.0.0.2:30303"]
`

func writeConfig(t *testing.T, body string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "slimchain.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)
	require.Equal(t, RoleMiner, cfg.Role.Role)
	require.Equal(t, ConflictOCC, cfg.Chain.ConflictCheck)
	require.Equal(t, 128, cfg.Chain.StateLen)
	require.Equal(t, ConsensusRaft, cfg.Chain.Consensus)
	require.Equal(t, 200, cfg.Miner.MaxTxs)
	require.True(t, cfg.Miner.CompressTrie)
	require.Len(t, cfg.Network.Peers, 2)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[role]\nrole = \"storage\"\n[miner]\nmin_txs = 1\nmax_txs = 10\n"))
	require.NoError(t, err)
	require.Equal(t, 64, cfg.Chain.StateLen)
	require.Equal(t, ConflictSSI, cfg.Chain.ConflictCheck)
	require.Equal(t, uint64(5_000_000), cfg.PoW.InitDiff)
}

func TestLoadRejectsBadRole(t *testing.T) {
	_, err := Load(writeConfig(t, "[role]\nrole = \"banana\"\n"))
	require.Error(t, err)
}

func TestLoadRejectsZeroMinTxs(t *testing.T) {
	_, err := Load(writeConfig(t, "[role]\nrole = \"miner\"\n[miner]\nmin_txs = 0\nmax_txs = 10\n"))
	require.Error(t, err)
}
