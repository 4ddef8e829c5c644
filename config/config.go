// Package config defines the protocol parameters that Setup needs
// before a channel can be created, loaded the way lnd's top-level
// config loads daemon parameters: a struct tagged for go-flags, with a
// constructor that fills in defaults and validates the result.
package config

import (
	"github.com/go-errors/errors"
	"github.com/jessevdk/go-flags"
)

// Config holds every protocol-level knob this module exposes. None of
// it is read from the environment or a CLI by this package itself —
// that wiring belongs to an embedding application — but the struct
// tags let one be built with go-flags the way lnd's Config is.
type Config struct {
	// DigitBase is a CCS08 digit base. Validate requires it to be at
	// least 2, but channel.Setup does not read it: rangeproof.Setup
	// derives the digit base u from MaxBalance.
	DigitBase int64 `long:"digitbase" description:"CCS08 range-proof digit base" default:"8"`

	// MaxBalance bounds every balance the range proof is willing to
	// certify, i.e. b in RPPublicParams::setup(0, b).
	MaxBalance int64 `long:"maxbalance" description:"maximum balance certified by range proofs" default:"4294967295"`

	// EpsilonMax bounds |epsilon| per payment.
	EpsilonMax int64 `long:"epsilonmax" description:"maximum absolute payment amount" default:"65535"`

	// TxFee is the per-channel transaction fee added to epsilon on
	// the side that initiated the payment, per the pinned Open
	// Question resolution in SPEC_FULL.md section 6.
	TxFee int64 `long:"txfee" description:"per-channel transaction fee" default:"0"`

	// DBPath is the bbolt file backing persisted channel/wallet/
	// revocation state.
	DBPath string `long:"dbpath" description:"path to the bbolt database file" default:"boltchan.db"`
}

// ErrInvalidConfig is returned by Validate when the configured bounds
// are not internally consistent.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		DigitBase:  8,
		MaxBalance: 4294967295,
		EpsilonMax: 65535,
		TxFee:      0,
		DBPath:     "boltchan.db",
	}
}

// Load parses args (e.g. os.Args[1:]) into a Config seeded with
// defaults, mirroring lnd's loadConfig entry point without pulling in
// an application's CLI concerns.
func Load(args []string) (*Config, error) {
	cfg := Default()
	parser := flags.NewParser(cfg, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, errors.WrapPrefix(err, "config: parse failed", 0)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configured bounds are internally consistent.
func (c *Config) Validate() error {
	if c.DigitBase < 2 {
		return ErrInvalidConfig
	}
	if c.MaxBalance <= 0 {
		return ErrInvalidConfig
	}
	if c.EpsilonMax < 0 || c.EpsilonMax > c.MaxBalance {
		return ErrInvalidConfig
	}
	if c.TxFee < 0 {
		return ErrInvalidConfig
	}
	return nil
}
