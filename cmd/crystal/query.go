package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/spf13/cobra"

	"github.com/isnlan/crystal/state"
)

func (self *env) backend() *state.KVBackend {
	return self.exec.Backend(&state.Vicinity{})
}

func (self *env) accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account <address>",
		Short: "Show the balance, nonce and code hash of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			return self.with(cmd, vm.Config{}, func() error {
				acc, found, err := self.backend().AccountRecord(addr)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printField(out, "address", addr.Hex())
				printField(out, "exists", found)
				if !found {
					acc = state.NewAccount()
				}
				printField(out, "balance", acc.Balance.ToBig())
				printField(out, "nonce", acc.Nonce.Uint64())
				printField(out, "codeHash", acc.CodeHash.Hex())
				return nil
			})
		},
	}
}

// storageCmd shows one slot, or with --all every stored value of the account. Slot
// keys are stored hashed, so --all lists values only.
func (self *env) storageCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "storage <address> [<slot>] [--all]",
		Short: "Show one storage slot or all stored values",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			if all {
				if len(args) != 1 {
					return fmt.Errorf("--all takes no slot")
				}
				return self.with(cmd, vm.Config{}, func() error {
					count := 0
					err := self.backend().ForEachStorage(addr, func(value common.Hash) bool {
						printField(cmd.OutOrStdout(), "value", value.Hex())
						count++
						return true
					})
					if err != nil {
						return err
					}
					printField(cmd.OutOrStdout(), "slots", count)
					return nil
				})
			}
			if len(args) != 2 {
				return fmt.Errorf("missing slot")
			}
			slot, err := parseU256(args[1])
			if err != nil {
				return err
			}
			return self.with(cmd, vm.Config{}, func() error {
				value, err := self.backend().StorageRecord(addr, common.Hash(slot.Bytes32()))
				if err != nil {
					return err
				}
				printField(cmd.OutOrStdout(), "value", value.Hex())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "List every stored value of the account")
	return cmd
}

func (self *env) codeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "code <address>",
		Short: "Show the code of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			return self.with(cmd, vm.Config{}, func() error {
				backend := self.backend()
				printField(cmd.OutOrStdout(), "codeHash", backend.CodeHash(addr).Hex())
				printField(cmd.OutOrStdout(), "code", hexutil.Encode(backend.Code(addr)))
				return nil
			})
		},
	}
}

// setBalanceCmd credits development accounts. Nonce, code and storage are kept.
func (self *env) setBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-balance <address> <amount>",
		Short: "Overwrite the balance of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			amount, err := parseU256(args[1])
			if err != nil {
				return err
			}
			return self.with(cmd, vm.Config{}, func() error {
				backend := self.backend()
				basic := backend.Basic(addr)
				basic.Balance = *amount
				if err := backend.Apply([]state.Apply{&state.Modify{Address: addr, Basic: basic}}, nil, false); err != nil {
					return err
				}
				printField(cmd.OutOrStdout(), "balance", amount.ToBig())
				return nil
			})
		},
	}
}
