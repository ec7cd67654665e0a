package main

import (
	"fmt"
	"io"
	"math/big"
	"runtime"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/isnlan/crystal/config"
	"github.com/isnlan/crystal/executive"
	"github.com/isnlan/crystal/kvdb"
	"github.com/isnlan/crystal/log"
)

const appName = "crystal"

var (
	version = "0.1.0"
	// set with -ldflags "-X main.gitCommit=..."
	gitCommit = ""
)

func versionString() string {
	ret := fmt.Sprintf("%s %s", appName, version)
	if gitCommit != "" {
		ret += "-" + gitCommit
	}
	return fmt.Sprintf("%s %s/%s %s", ret, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

// env is what every state command needs: the loaded config, the store it names and
// an executive over that store.
type env struct {
	cfgFile string
	cfg     *config.Config
	log     *logrus.Logger
	db      kvdb.KeyValueStore
	exec    *executive.Executive
}

func newRootCmd() *cobra.Command {
	e := new(env)
	root := &cobra.Command{
		Use:                   fmt.Sprintf("%s <command> [<options>]", appName),
		Short:                 "Run contracts against a persistent EVM state store",
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&e.cfgFile, "config", "C", "", "Set config file")
	root.AddCommand(
		&cobra.Command{
			Use:                   "version",
			Short:                 fmt.Sprintf("Print the version number of %s", appName),
			DisableFlagsInUseLine: true,
			Run: func(cmd *cobra.Command, args []string) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString())
			},
		},
		e.createCmd(),
		e.callCmd(),
		e.accountCmd(),
		e.storageCmd(),
		e.codeCmd(),
		e.setBalanceCmd(),
	)
	return root
}

// with opens the configured store for the duration of fn.
func (self *env) with(cmd *cobra.Command, vmConfig vm.Config, fn func() error) error {
	cfg, err := config.Load(self.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	self.cfg = cfg
	self.log = log.New(cfg.Logger.Level, cmd.ErrOrStderr())
	if self.db, err = cfg.DB.NewDB(); err != nil {
		return fmt.Errorf("open %s db: %w", cfg.DB.Type, err)
	}
	defer func() {
		if err := self.db.Close(); err != nil {
			self.log.WithError(err).Warn("close db")
		}
	}()
	exec_cfg := cfg.Executive()
	exec_cfg.VM = vmConfig
	if self.exec, err = executive.New(self.db, exec_cfg, executive.WithLogger(self.log)); err != nil {
		return err
	}
	self.log.WithFields(logrus.Fields{
		"db":    cfg.DB.Type,
		"path":  cfg.DB.Path,
		"fork":  cfg.Chain.Fork,
		"chain": cfg.Chain.ID,
	}).Debug("store opened")
	return fn()
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// parseU256 accepts decimal and 0x prefixed hex.
func parseU256(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	b, ok := new(big.Int).SetString(s, 0)
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}
	ret, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("quantity %q overflows 256 bits", s)
	}
	return ret, nil
}

func parseHex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if has0x := len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X'); !has0x {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}

func printField(w io.Writer, name string, value interface{}) {
	_, _ = fmt.Fprintf(w, "%-9s %v\n", name+":", value)
}
