// slimchain-node is a single binary covering all three SlimChain roles
// (client, storage, miner); which one it runs is decided by role.role in
// the config file passed to `run`.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/slimchain/slimchain/internal/config"
	"github.com/slimchain/slimchain/internal/consensus/pow"
	"github.com/slimchain/slimchain/internal/consensus/raft"
	"github.com/slimchain/slimchain/internal/errs"
	"github.com/slimchain/slimchain/internal/node"
	"github.com/slimchain/slimchain/internal/pipeline"
	"github.com/slimchain/slimchain/internal/slimlog"
	"github.com/slimchain/slimchain/internal/state"
	"github.com/slimchain/slimchain/internal/trie"
)

const (
	exitClean            = 0
	exitConfigError      = 2
	exitStateDivergence  = 3
)

var app = &cli.App{
	Name:  "slimchain-node",
	Usage: "SlimChain storage/miner/client node",
	Commands: []*cli.Command{
		runCommand,
	},
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "start the node with the role specified in config",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "config", Required: true, Usage: "path to the TOML config file"},
	},
	Action: runAction,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, errExitConfig):
		return exitConfigError
	case errors.Is(err, errs.ErrDivergence), errors.Is(err, errs.ErrStorageCorruption):
		return exitStateDivergence
	default:
		return exitConfigError
	}
}

var errExitConfig = errors.New("config error")

func runAction(cctx *cli.Context) error {
	log := slimlog.New("slimchain-node")

	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return fmt.Errorf("%w: %v", errExitConfig, err)
	}

	dataDir := cctx.String("config") + ".data"
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("%w: creating data dir: %v", errExitConfig, err)
	}

	switch cfg.Role.Role {
	case config.RoleStorage:
		return runStorage(context.Background(), cfg, dataDir, log)
	case config.RoleMiner:
		return runMiner(context.Background(), cfg, dataDir, log)
	case config.RoleClient:
		log.Info("client role has no long-running node loop; nothing to run")
		return nil
	default:
		return fmt.Errorf("%w: unknown role %q", errExitConfig, cfg.Role.Role)
	}
}

func runStorage(ctx context.Context, cfg *config.Config, dataDir string, log slimlog.Logger) error {
	nodeStore, err := state.OpenPebbleNodeStore(dataDir + "/nodes")
	if err != nil {
		return fmt.Errorf("%w: opening node store: %v", errExitConfig, err)
	}
	defer nodeStore.Close()

	codeStore, err := state.OpenBillyCodeStore(dataDir+"/code", dataDir+"/code-index")
	if err != nil {
		return fmt.Errorf("%w: opening code store: %v", errExitConfig, err)
	}
	defer codeStore.Close()

	sn, err := node.NewStorageNode(cfg, codeStore, nodeStore)
	if err != nil {
		return fmt.Errorf("%w: %v", errExitConfig, err)
	}
	log.Info("storage node ready", "backend", fmt.Sprintf("%T", sn.Backend))

	<-ctx.Done()
	return nil
}

func runMiner(ctx context.Context, cfg *config.Config, dataDir string, log slimlog.Logger) error {
	blocks, err := state.OpenBlockStore(dataDir + "/blocks")
	if err != nil {
		return fmt.Errorf("%w: opening block store: %v", errExitConfig, err)
	}
	defer blocks.Close()

	// No external Raft replication log is wired into this CLI yet; that
	// collaborator belongs to the replication layer's deployment, not to
	// this process. NewMinerNode rejects chain.consensus = "raft" with a
	// nil log rather than silently running without replication.
	var raftLog raft.Log
	var chainForPoW pow.ChainReader
	if cfg.Chain.Consensus == config.ConsensusPoW {
		chainForPoW = blocks
	}
	mn, err := node.NewMinerNode(cfg, trie.EmptyRoot, pipeline.NewWriteIndex(), chainForPoW, raftLog, func() int64 { return time.Now().Unix() })
	if err != nil {
		return fmt.Errorf("%w: %v", errExitConfig, err)
	}
	log.Info("miner node ready", "consensus", string(cfg.Chain.Consensus))

	<-ctx.Done()
	_ = mn
	return nil
}
