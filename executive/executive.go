// Package executive runs calls and creates against a shared store: one read, execute
// and apply cycle per invocation.
package executive

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/params"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/isnlan/crystal/chainconfig"
	"github.com/isnlan/crystal/kvdb"
	"github.com/isnlan/crystal/log"
	"github.com/isnlan/crystal/state"
	"github.com/isnlan/crystal/substate"
)

var (
	callTimer   = metrics.NewRegisteredTimer("executive/call", nil)
	createTimer = metrics.NewRegisteredTimer("executive/create", nil)
	fatalMeter  = metrics.NewRegisteredMeter("executive/fatal", nil)
)

// ExecutionInfo is the result of a call (T = []byte) or a create (T = common.Address).
type ExecutionInfo[T any] struct {
	ExitReason ExitReason
	Value      T
	UsedGas    uint256.Int
	Logs       []*types.Log
}

type Executive struct {
	store        kvdb.KeyValueStore
	cfg          Config
	chain_config *params.ChainConfig
	precompiles  Precompiles
	extra        Precompiles
	codes        *lru.Cache
	new_engine   EngineFactory
	log          logrus.FieldLogger
}

type Option func(*Executive)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(self *Executive) { self.log = logger }
}

// WithPrecompile adds or replaces one precompile. Added precompiles are reachable by
// top level calls only.
func WithPrecompile(addr common.Address, p Precompile) Option {
	return func(self *Executive) {
		self.precompiles[addr] = p
		self.extra[addr] = p
	}
}

func WithEngineFactory(factory EngineFactory) Option {
	return func(self *Executive) { self.new_engine = factory }
}

func New(store kvdb.KeyValueStore, cfg Config, opts ...Option) (*Executive, error) {
	chain_config, err := chainconfig.New(cfg.Fork, cfg.ChainID)
	if err != nil {
		return nil, err
	}
	self := &Executive{
		store:        store,
		cfg:          cfg,
		chain_config: chain_config,
		precompiles:  DefaultPrecompiles(chain_config.Rules(common.Big0, false)),
		extra:        make(Precompiles),
		new_engine:   NewStackExecutor,
		log:          log.Discard(),
	}
	if cfg.CodeCacheSize > 0 {
		if self.codes, err = lru.New(cfg.CodeCacheSize); err != nil {
			return nil, err
		}
	}
	for _, opt := range opts {
		opt(self)
	}
	return self, nil
}

func (self *Executive) ChainConfig() *params.ChainConfig {
	return self.chain_config
}

func (self *Executive) Backend(vicinity *state.Vicinity) *state.KVBackend {
	return state.NewKVBackend(vicinity, self.store, state.Opts{CodeCache: self.codes, Logger: self.log})
}

func (self *Executive) Call(args *CallArgs, vicinity *state.Vicinity) (*ExecutionInfo[[]byte], error) {
	defer callTimer.UpdateSince(time.Now())
	exec_log := self.log.WithFields(logrus.Fields{
		"exec":   uuid.New(),
		"kind":   "call",
		"source": args.Source,
		"target": args.Target,
	})
	return execute(self, exec_log, &args.TxArgs, args.Input, false, vicinity, func(engine Engine, _ *state.KVBackend) (ExitReason, []byte) {
		return engine.TransactCall(args.Source, args.Target, &args.Value, args.Input, args.GasLimit, args.AccessList)
	})
}

// Create deploys init code. The returned address is derived from the source and its
// nonce before execution, whatever the outcome.
func (self *Executive) Create(args *CreateArgs, vicinity *state.Vicinity) (*ExecutionInfo[common.Address], error) {
	defer createTimer.UpdateSince(time.Now())
	exec_log := self.log.WithFields(logrus.Fields{
		"exec":   uuid.New(),
		"kind":   "create",
		"source": args.Source,
	})
	return execute(self, exec_log, &args.TxArgs, args.Init, true, vicinity, func(engine Engine, backend *state.KVBackend) (ExitReason, common.Address) {
		basic := backend.Basic(args.Source)
		addr := crypto.CreateAddress(args.Source, basic.Nonce.Uint64())
		reason, _ := engine.TransactCreate(args.Source, &args.Value, args.Init, args.GasLimit, args.AccessList)
		return reason, addr
	})
}

func execute[T any](
	self *Executive,
	exec_log logrus.FieldLogger,
	tx *TxArgs,
	data []byte,
	isCreate bool,
	vicinity *state.Vicinity,
	run func(Engine, *state.KVBackend) (ExitReason, T),
) (*ExecutionInfo[T], error) {
	backend := self.Backend(vicinity)
	rules := self.chain_config.Rules(vicinity.BlockNumber.ToBig(), false)
	if tx.Validate {
		if err := Validate(backend, rules, tx, data, isCreate); err != nil {
			exec_log.WithError(err).Debug("rejected")
			return nil, err
		}
	}
	engine := self.new_engine(&EngineParams{
		Backend:     backend,
		Metadata:    substate.Metadata{GasLimit: tx.GasLimit, Rules: rules},
		ChainConfig: self.chain_config,
		VMConfig:    self.cfg.VM,
		Precompiles: self.precompiles,
		Extra:       self.extra,
	})
	reason, value := run(engine, backend)
	info := &ExecutionInfo[T]{ExitReason: reason, Value: value}
	info.UsedGas.SetUint64(engine.UsedGas())

	if reason.Kind == ExitFatal {
		fatalMeter.Mark(1)
		var store_err *kvdb.StoreError
		if errors.As(reason.Err, &store_err) {
			exec_log.WithError(reason.Err).Error("execution aborted by store failure")
			return nil, reason.Err
		}
		// nothing the engine left behind can be trusted
		exec_log.WithError(reason.Err).Error("execution failed fatally, state unchanged")
		return info, nil
	}
	diff, logs := engine.Deconstruct()
	if err := backend.Apply(diff, nil, false); err != nil {
		exec_log.WithError(err).Error("apply failed")
		return nil, err
	}
	info.Logs = logs
	exec_log.WithFields(logrus.Fields{
		"exit":    reason.String(),
		"gas":     engine.UsedGas(),
		"changes": len(diff),
		"logs":    len(logs),
	}).Debug("executed")
	return info, nil
}
