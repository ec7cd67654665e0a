package main

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/eth/tracers/logger"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/isnlan/crystal/executive"
	"github.com/isnlan/crystal/state"
)

const defaultGas = 10_000_000

// txFlags are shared by create and call.
type txFlags struct {
	from        string
	value       string
	gas         uint64
	nonce       string
	validate    bool
	block       uint64
	timestamp   uint64
	coinbase    string
	gasPrice    string
	baseFee     string
	blockGas    uint64
	trace       bool
	traceMemory bool
	dump        bool
}

func (self *txFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&self.from, "from", "", "Source address")
	fs.StringVar(&self.value, "value", "0", "Value to transfer")
	fs.Uint64Var(&self.gas, "gas", defaultGas, "Gas limit")
	fs.StringVar(&self.nonce, "nonce", "", "Expected source nonce, checked with --validate")
	fs.BoolVar(&self.validate, "validate", false, "Run the pre-flight checks first")
	fs.Uint64Var(&self.block, "block", 0, "Block number")
	fs.Uint64Var(&self.timestamp, "timestamp", 0, "Block timestamp")
	fs.StringVar(&self.coinbase, "coinbase", "", "Block coinbase")
	fs.StringVar(&self.gasPrice, "gas-price", "0", "Gas price")
	fs.StringVar(&self.baseFee, "base-fee", "0", "Block base fee per gas")
	fs.Uint64Var(&self.blockGas, "block-gas-limit", 0, "Block gas limit, 0 for none")
	fs.BoolVar(&self.trace, "trace", false, "Print an opcode trace to stderr")
	fs.BoolVar(&self.traceMemory, "trace-memory", false, "Include memory in the trace")
	fs.BoolVar(&self.dump, "dump", false, "Dump the full execution info")
	_ = cobra.MarkFlagRequired(fs, "from")
}

func (self *txFlags) args() (*executive.TxArgs, error) {
	source, err := parseAddress(self.from)
	if err != nil {
		return nil, err
	}
	value, err := parseU256(self.value)
	if err != nil {
		return nil, err
	}
	ret := &executive.TxArgs{
		Source:   source,
		Value:    *value,
		GasLimit: self.gas,
		Validate: self.validate,
	}
	if self.nonce != "" {
		if ret.Nonce, err = parseU256(self.nonce); err != nil {
			return nil, err
		}
		ret.Transactional = true
	}
	return ret, nil
}

func (self *txFlags) vicinity(origin common.Address, chainID uint64) (*state.Vicinity, error) {
	ret := &state.Vicinity{Origin: origin}
	ret.ChainID.SetUint64(chainID)
	ret.BlockNumber.SetUint64(self.block)
	ret.BlockTimestamp.SetUint64(self.timestamp)
	ret.BlockGasLimit.SetUint64(self.blockGas)
	if self.coinbase != "" {
		coinbase, err := parseAddress(self.coinbase)
		if err != nil {
			return nil, err
		}
		ret.BlockCoinbase = coinbase
	}
	price, err := parseU256(self.gasPrice)
	if err != nil {
		return nil, err
	}
	base_fee, err := parseU256(self.baseFee)
	if err != nil {
		return nil, err
	}
	ret.GasPrice, ret.BlockBaseFeePerGas = *price, *base_fee
	return ret, nil
}

func (self *txFlags) tracer() (*logger.StructLogger, vm.Config) {
	if !self.trace {
		return nil, vm.Config{}
	}
	tracer := logger.NewStructLogger(&logger.Config{EnableMemory: self.traceMemory})
	return tracer, vm.Config{Debug: true, Tracer: tracer}
}

func printResult(cmd *cobra.Command, flags *txFlags, reason executive.ExitReason, value interface{}, usedGas *uint256.Int, logs []*types.Log, info interface{}) {
	out := cmd.OutOrStdout()
	printField(out, "exit", reason)
	printField(out, "gas", usedGas.Uint64())
	printField(out, "value", value)
	printField(out, "logs", len(logs))
	if flags.dump {
		spew.Fdump(out, info)
	}
}

func printTrace(w io.Writer, tracer *logger.StructLogger, logs []*types.Log) {
	if tracer == nil {
		return
	}
	_, _ = fmt.Fprintln(w, "#### TRACE ####")
	logger.WriteTrace(w, tracer.StructLogs())
	_, _ = fmt.Fprintln(w, "#### LOGS ####")
	logger.WriteLogs(w, logs)
}

func (self *env) createCmd() *cobra.Command {
	flags := new(txFlags)
	var code string
	cmd := &cobra.Command{
		Use:   "create --from <address> --code <hex> [<options>]",
		Short: "Deploy contract init code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tx, err := flags.args()
			if err != nil {
				return err
			}
			init_code, err := parseHex(code)
			if err != nil {
				return err
			}
			tracer, vm_cfg := flags.tracer()
			return self.with(cmd, vm_cfg, func() error {
				vicinity, err := flags.vicinity(tx.Source, self.cfg.Chain.ID)
				if err != nil {
					return err
				}
				info, err := self.exec.Create(&executive.CreateArgs{TxArgs: *tx, Init: init_code}, vicinity)
				if err != nil {
					return err
				}
				printTrace(cmd.ErrOrStderr(), tracer, info.Logs)
				printResult(cmd, flags, info.ExitReason, info.Value.Hex(), &info.UsedGas, info.Logs, info)
				return nil
			})
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&code, "code", "", "Init code in hex")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func (self *env) callCmd() *cobra.Command {
	flags := new(txFlags)
	var to, input string
	cmd := &cobra.Command{
		Use:   "call --from <address> --to <address> [--input <hex>] [<options>]",
		Short: "Call a contract or transfer value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tx, err := flags.args()
			if err != nil {
				return err
			}
			target, err := parseAddress(to)
			if err != nil {
				return err
			}
			data, err := parseHex(input)
			if err != nil {
				return err
			}
			tracer, vm_cfg := flags.tracer()
			return self.with(cmd, vm_cfg, func() error {
				vicinity, err := flags.vicinity(tx.Source, self.cfg.Chain.ID)
				if err != nil {
					return err
				}
				info, err := self.exec.Call(&executive.CallArgs{TxArgs: *tx, Target: target, Input: data}, vicinity)
				if err != nil {
					return err
				}
				printTrace(cmd.ErrOrStderr(), tracer, info.Logs)
				printResult(cmd, flags, info.ExitReason, hexutil.Encode(info.Value), &info.UsedGas, info.Logs, info)
				return nil
			})
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&to, "to", "", "Target address")
	cmd.Flags().StringVar(&input, "input", "", "Call data in hex")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
