package boltchan

import (
	"github.com/btcsuite/btclog"
)

// chanLog is the module's only logger handle: no other package declares
// its own logger or UseLogger hook, and no code in the module logs
// through it.
var chanLog = btclog.Disabled

// UseLogger sets the package-level logger used by this module's top
// level. The zero value leaves logging disabled, matching lnd's
// default before SetLogWriter/InitLogRotator is called.
func UseLogger(logger btclog.Logger) {
	chanLog = logger
}
