package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mars-protocol/contracts-sub007/core/events"
	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/state"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/crypto"
	nativecommon "github.com/mars-protocol/contracts-sub007/native/common"
	"github.com/mars-protocol/contracts-sub007/native/creditmanager"
	"github.com/mars-protocol/contracts-sub007/native/incentives"
	"github.com/mars-protocol/contracts-sub007/native/lending"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
	"github.com/mars-protocol/contracts-sub007/native/params"
	"github.com/mars-protocol/contracts-sub007/observability"
	telemetry "github.com/mars-protocol/contracts-sub007/observability/otel"
	"github.com/mars-protocol/contracts-sub007/storage"
)

var (
	ErrUnexpectedFunds  = errors.New("dispatch: message does not accept funds")
	ErrInvalidSender    = errors.New("dispatch: invalid sender")
	ErrNotInitialized   = errors.New("dispatch: store not initialized")
	ErrUnknownModule    = errors.New("dispatch: unknown module")
	ErrSingleCoinNeeded = errors.New("dispatch: exactly one coin must be attached")
)

// Result is the outcome of one committed turn.
type Result struct {
	Events []types.Event   `json:"events"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithAddresses(addrs Addresses) Option {
	return func(d *Dispatcher) { d.addrs = addrs }
}

func WithSwapFee(fee numeric.Decimal) Option {
	return func(d *Dispatcher) { d.swapFee = fee }
}

// Dispatcher executes messages against the protocol store. Turns are
// serialised; each turn runs over a write overlay that is committed only when
// the whole message succeeds.
type Dispatcher struct {
	mu      sync.RWMutex
	db      storage.Database
	addrs   Addresses
	swapFee numeric.Decimal
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewDispatcher(db storage.Database, opts ...Option) (*Dispatcher, error) {
	if db == nil {
		return nil, fmt.Errorf("dispatch: database required")
	}
	d := &Dispatcher{
		db:      db,
		addrs:   DefaultAddresses(),
		swapFee: numeric.Zero(),
		logger:  slog.Default(),
		tracer:  telemetry.Tracer("github.com/mars-protocol/contracts-sub007/core"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Addresses returns the module accounts used by the dispatcher.
func (d *Dispatcher) Addresses() Addresses { return d.addrs }

// Execute runs msg for env.Sender. Attached funds are moved to the handling
// module before the message runs.
func (d *Dispatcher) Execute(ctx context.Context, env types.Env, msg Message) (*Result, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	ctx, span := d.tracer.Start(ctx, "dispatch."+msg.Type(), trace.WithAttributes(
		attribute.String("mars.module", msg.Module()),
		attribute.String("mars.sender", env.Sender),
		attribute.Int64("mars.block_height", int64(env.BlockHeight)),
	))
	defer span.End()

	start := time.Now()
	result, err := d.execute(ctx, env, msg)
	observability.Turns().Observe(msg.Module(), msg.Type(), err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.LogAttrs(ctx, slog.LevelWarn, "turn rejected",
			slog.String("module", msg.Module()),
			slog.String("msg", msg.Type()),
			slog.String("sender", env.Sender),
			slog.Uint64("height", env.BlockHeight),
			slog.Any("error", err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("mars.events", len(result.Events)))
	observability.Events().Record(result.Events)
	d.logger.LogAttrs(ctx, slog.LevelInfo, "turn executed",
		slog.String("module", msg.Module()),
		slog.String("msg", msg.Type()),
		slog.String("sender", env.Sender),
		slog.Uint64("height", env.BlockHeight),
		slog.Int("events", len(result.Events)))
	return result, nil
}

func (d *Dispatcher) execute(_ context.Context, env types.Env, msg Message) (*Result, error) {
	if err := crypto.ValidateAddress(env.Sender); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSender, err)
	}
	funds := env.Funds.Normalize()
	for _, coin := range funds {
		if err := coin.Validate(); err != nil {
			return nil, fmt.Errorf("%w: funds: %v", ErrInvalidMessage, err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.withOverlay(func(manager *state.Manager, buf *events.Buffer) (json.RawMessage, error) {
		if _, ok, err := manager.ContractVersion(); err != nil {
			return nil, err
		} else if !ok {
			return nil, ErrNotInitialized
		}
		a := newApp(manager, buf, env.BlockTime, d.addrs, d.swapFee)
		if len(funds) > 0 {
			dest := ""
			if acceptsFunds(msg) {
				dest = d.addrs.moduleAddress(msg.Module())
			}
			if dest == "" {
				return nil, fmt.Errorf("%w: %s", ErrUnexpectedFunds, msg.Type())
			}
			if err := a.bank.Transfer(env.Sender, dest, funds); err != nil {
				return nil, err
			}
		}
		env.Funds = funds
		return a.route(env, msg)
	})
}

// withOverlay runs fn over a fresh overlay and commits it when fn succeeds.
func (d *Dispatcher) withOverlay(fn func(*state.Manager, *events.Buffer) (json.RawMessage, error)) (*Result, error) {
	overlay := storage.NewCacheDB(d.db)
	buf := events.NewBuffer()
	data, err := fn(state.NewManager(overlay), buf)
	if err != nil {
		overlay.Discard()
		return nil, err
	}
	if err := overlay.Commit(); err != nil {
		return nil, fmt.Errorf("dispatch: commit: %w", err)
	}
	rendered := buf.Rendered()
	if rendered == nil {
		rendered = []types.Event{}
	}
	return &Result{Events: rendered, Data: data}, nil
}

func acceptsFunds(msg Message) bool {
	switch msg.(type) {
	case *MsgDeposit, *MsgRepay, *MsgLiquidate, *MsgSetAssetIncentive, *MsgUpdateCreditAccount:
		return true
	default:
		return false
	}
}

func singleCoin(funds types.Coins) (types.Coin, error) {
	if len(funds) != 1 {
		return types.Coin{}, ErrSingleCoinNeeded
	}
	return funds[0], nil
}

func orSender(addr, sender string) string {
	if addr == "" {
		return sender
	}
	return addr
}

func encodeData(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (a *app) route(env types.Env, msg Message) (json.RawMessage, error) {
	sender := env.Sender
	switch m := msg.(type) {
	case *MsgSend:
		if err := crypto.ValidateAddress(m.To); err != nil {
			return nil, fmt.Errorf("%w: recipient: %v", ErrInvalidMessage, err)
		}
		return nil, a.bank.Transfer(sender, m.To, m.Coins.Normalize())

	case *MsgUpdateAssetParams:
		return nil, a.params.UpdateAssetParams(sender, m.Params)
	case *MsgUpdateVaultConfig:
		return nil, a.params.UpdateVaultConfig(sender, m.Config)
	case *MsgRemoveVaultConfig:
		return nil, a.params.RemoveVaultConfig(sender, m.Addr)
	case *MsgSetPaused:
		return nil, a.params.SetPaused(sender, m.Target, m.Paused)

	case *MsgSetPriceSource:
		kind, err := oracle.ParseActionKind(m.Kind)
		if err != nil {
			return nil, err
		}
		src, err := m.Source.Source()
		if err != nil {
			return nil, err
		}
		return nil, a.oracle.SetPriceSource(sender, m.Denom, kind, src)
	case *MsgRemovePriceSource:
		kind, err := oracle.ParseActionKind(m.Kind)
		if err != nil {
			return nil, err
		}
		return nil, a.oracle.RemovePriceSource(sender, m.Denom, kind)

	case *MsgInitAsset:
		return nil, a.lending.InitAsset(sender, m.Denom, m.Params)
	case *MsgUpdateAsset:
		return nil, a.lending.UpdateAsset(sender, m.Denom, m.Update)
	case *MsgUpdateLendingConfig:
		return nil, a.lending.UpdateConfig(sender, m.Config)
	case *MsgDeposit:
		coin, err := singleCoin(env.Funds)
		if err != nil {
			return nil, err
		}
		scaled, err := a.lending.Deposit(sender, identityOf(orSender(m.OnBehalfOf, sender), m.AccountID), coin)
		if err != nil {
			return nil, err
		}
		return encodeData(map[string]string{"scaled": scaled.String()})
	case *MsgWithdraw:
		withdrawn, err := a.lending.Withdraw(sender, m.AccountID, m.Denom, m.Amount, m.Recipient)
		if err != nil {
			return nil, err
		}
		return encodeData(map[string]string{"amount": withdrawn.String()})
	case *MsgBorrow:
		scaled, err := a.lending.Borrow(sender, m.AccountID, m.Coin, m.Recipient)
		if err != nil {
			return nil, err
		}
		return encodeData(map[string]string{"scaled": scaled.String()})
	case *MsgRepay:
		coin, err := singleCoin(env.Funds)
		if err != nil {
			return nil, err
		}
		repaid, err := a.lending.Repay(sender, identityOf(orSender(m.OnBehalfOf, sender), m.AccountID), coin)
		if err != nil {
			return nil, err
		}
		return encodeData(map[string]string{"repaid": repaid.String()})
	case *MsgUpdateCollateralStatus:
		return nil, a.lending.UpdateAssetCollateralStatus(sender, m.AccountID, m.Denom, m.Enable)
	case *MsgLiquidate:
		coin, err := singleCoin(env.Funds)
		if err != nil {
			return nil, err
		}
		if m.User == "" {
			return nil, fmt.Errorf("%w: user required", ErrInvalidMessage)
		}
		res, err := a.lending.Liquidate(sender, identityOf(m.User, m.AccountID), m.CollateralDenom, coin, m.Recipient)
		if err != nil {
			return nil, err
		}
		return encodeData(res)

	case *MsgSetAssetIncentive:
		return nil, a.incentives.SetAssetIncentive(sender, m.CollateralDenom, m.IncentiveDenom,
			m.EmissionPerSecond, m.StartTime, m.Duration, env.Funds)
	case *MsgClaimRewards:
		claimed, err := a.incentives.ClaimRewards(types.NewIdentity(sender), orSender(m.Recipient, sender))
		if err != nil {
			return nil, err
		}
		return encodeData(claimed)
	case *MsgUpdateIncentiveWhitelist:
		return nil, a.incentives.UpdateWhitelist(sender, m.Add, m.Remove)

	case *MsgCreateCreditAccount:
		id, err := a.credit.CreateCreditAccount(sender, m.Kind)
		if err != nil {
			return nil, err
		}
		return encodeData(map[string]string{"account_id": id})
	case *MsgUpdateCreditAccount:
		id, err := a.credit.UpdateCreditAccount(sender, m.AccountID, m.Actions, env.Funds)
		if err != nil {
			return nil, err
		}
		return encodeData(map[string]string{"account_id": id})
	case *MsgBurnCreditAccount:
		return nil, a.credit.BurnCreditAccount(sender, m.AccountID)
	case *MsgUpdateCreditManagerConfig:
		return nil, a.credit.UpdateConfig(sender, m.Config)

	case *MsgUpdateOwner:
		return nil, a.updateOwner(sender, m.TargetModule, m.Update)

	case *MsgRegisterVault:
		if err := nativecommon.RequireOwner(a.manager, params.ModuleName, sender); err != nil {
			return nil, err
		}
		return nil, a.vaults.Register(m.Addr, m.Info)
	case *MsgRegisterPool:
		if err := nativecommon.RequireOwner(a.manager, params.ModuleName, sender); err != nil {
			return nil, err
		}
		return nil, a.zapper.RegisterPool(m.LpDenom, m.Addr, m.Denoms[0], m.Denoms[1])
	case *MsgRegisterFarm:
		if err := nativecommon.RequireOwner(a.manager, params.ModuleName, sender); err != nil {
			return nil, err
		}
		return nil, a.staker.RegisterFarm(m.LpDenom, m.RewardDenom, m.RewardPerSecond)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, msg.Type())
}

func (a *app) updateOwner(sender, module string, update nativecommon.OwnerUpdate) error {
	if update == nil {
		return fmt.Errorf("%w: owner update required", ErrInvalidMessage)
	}
	switch module {
	case params.ModuleName:
		return a.params.UpdateOwner(sender, update)
	case oracle.ModuleName:
		return a.oracle.UpdateOwner(sender, update)
	case lending.ModuleName:
		return a.lending.UpdateOwner(sender, update)
	case incentives.ModuleName:
		return a.incentives.UpdateOwner(sender, update)
	case creditmanager.ModuleName:
		return a.credit.UpdateOwner(sender, update)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownModule, module)
	}
}
