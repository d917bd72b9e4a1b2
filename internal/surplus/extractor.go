package surplus

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Behodler/yield-strategy-router/internal/event"
	"github.com/Behodler/yield-strategy-router/internal/ledger"
	"github.com/Behodler/yield-strategy-router/internal/mathutil"
	"github.com/Behodler/yield-strategy-router/internal/router"
)

var (
	// ErrBadPercentage is returned when a skim percentage falls outside
	// [1, 100].
	ErrBadPercentage = fmt.Errorf("percentage out of range [1, 100]")

	// ErrNotConfigured is returned when the extractor is used before
	// Configure.
	ErrNotConfigured = fmt.Errorf("extractor not configured")

	// ErrNoSurplus is returned when there is no yield to extract.
	ErrNoSurplus = fmt.Errorf("no surplus available")
)

// Config binds the extractor to one (token, pool, adapter, client) tuple.
// Configure overwrites it wholesale.
type Config struct {
	Token   string    `json:"token"`
	Pool    uuid.UUID `json:"pool"`
	Adapter uuid.UUID `json:"adapter"`
	Client  uuid.UUID `json:"client"`
}

// Extractor skims a percentage of accumulated yield to a recipient through
// the router's authorized-withdrawer path. The withdrawal arithmetic behind
// that path is what guarantees principal is never reduced; the extractor
// itself only decides how much to ask for.
type Extractor struct {
	owner    uuid.UUID
	identity uuid.UUID // Must be granted the withdrawer role at wiring time

	router *router.Router
	cfg    *Config
	log    zerolog.Logger
}

// New creates an unconfigured extractor owned by owner.
func New(owner uuid.UUID, rt *router.Router, log zerolog.Logger) (*Extractor, error) {
	if owner == uuid.Nil {
		return nil, fmt.Errorf("extractor: nil owner: %w", ledger.ErrInvalidArgument)
	}
	if rt == nil {
		return nil, fmt.Errorf("extractor: nil router: %w", ledger.ErrInvalidArgument)
	}

	return &Extractor{
		owner:    owner,
		identity: uuid.New(),
		router:   rt,
		log:      log.With().Str("component", "surplus_extractor").Logger(),
	}, nil
}

// Identity returns the extractor's withdrawer identity, for wiring into the
// router's authorization set.
func (e *Extractor) Identity() uuid.UUID { return e.identity }

// Config returns a copy of the current configuration, or nil when unset.
func (e *Extractor) Config() *Config {
	if e.cfg == nil {
		return nil
	}
	cfg := *e.cfg
	return &cfg
}

// Configure replaces the extractor's binding wholesale. Owner-only; every
// field must be set.
func (e *Extractor) Configure(caller uuid.UUID, cfg Config) error {
	if caller != e.owner {
		return fmt.Errorf("configure: caller %s is not owner: %w", caller, ledger.ErrUnauthorized)
	}
	if cfg.Token == "" || cfg.Pool == uuid.Nil || cfg.Adapter == uuid.Nil || cfg.Client == uuid.Nil {
		return fmt.Errorf("configure: incomplete configuration: %w", ledger.ErrInvalidArgument)
	}

	e.cfg = &cfg

	e.log.Info().
		Str("token", cfg.Token).
		Stringer("pool", cfg.Pool).
		Stringer("client", cfg.Client).
		Msg("extractor configured")

	return e.router.Announce(&event.ExtractorConfigured{
		EventID: uuid.New(),
		Token:   cfg.Token,
		Pool:    cfg.Pool,
		Adapter: cfg.Adapter,
		Client:  cfg.Client,
	})
}

// Restore reinstates a configuration from a snapshot without announcing it.
func (e *Extractor) Restore(cfg *Config) {
	if cfg == nil {
		e.cfg = nil
		return
	}
	c := *cfg
	e.cfg = &c
}

// WithdrawSurplusPercent skims percentage of the configured client's current
// surplus to recipient. Owner-only. Returns the amount withdrawn.
func (e *Extractor) WithdrawSurplusPercent(caller uuid.UUID, percentage int64, recipient uuid.UUID) (int64, error) {
	if caller != e.owner {
		return 0, fmt.Errorf("withdraw surplus: caller %s is not owner: %w", caller, ledger.ErrUnauthorized)
	}
	if percentage < 1 || percentage > 100 {
		return 0, fmt.Errorf("withdraw surplus: %d: %w", percentage, ErrBadPercentage)
	}
	if e.cfg == nil || e.cfg.Token == "" {
		return 0, fmt.Errorf("withdraw surplus: %w", ErrNotConfigured)
	}
	if recipient == uuid.Nil {
		return 0, fmt.Errorf("withdraw surplus: nil recipient: %w", ledger.ErrInvalidArgument)
	}

	principal, err := e.router.PrincipalOf(e.cfg.Token, e.cfg.Client)
	if err != nil {
		return 0, err
	}

	surplus, err := Calculate(e.router, e.cfg.Pool, e.cfg.Token, e.cfg.Client, principal)
	if err != nil {
		return 0, err
	}
	if surplus == 0 {
		return 0, fmt.Errorf("withdraw surplus: %w", ErrNoSurplus)
	}

	amount := mathutil.Percent(surplus, percentage)
	if amount == 0 {
		return 0, fmt.Errorf("withdraw surplus: %d%% of %d floors to zero: %w", percentage, surplus, ErrNoSurplus)
	}

	paid, err := e.router.WithdrawFrom(e.identity, e.cfg.Token, e.cfg.Client, amount, recipient)
	if err != nil {
		return 0, err
	}

	e.log.Info().
		Str("token", e.cfg.Token).
		Stringer("client", e.cfg.Client).
		Int64("percentage", percentage).
		Int64("amount", paid).
		Stringer("recipient", recipient).
		Msg("surplus withdrawn")

	if err := e.router.Announce(&event.SurplusWithdrawn{
		EventID:    uuid.New(),
		Token:      e.cfg.Token,
		Pool:       e.cfg.Pool,
		Client:     e.cfg.Client,
		Percentage: percentage,
		Amount:     paid,
		Recipient:  recipient,
	}); err != nil {
		return 0, err
	}

	return paid, nil
}
