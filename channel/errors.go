package channel

import "github.com/go-errors/errors"

// Sentinel errors grouped by the kinds spec.md section 7 names,
// declared as a single var block the way channeldb/error.go groups
// every persistence error together.
var (
	// MalformedInput
	ErrBadEncoding = errors.New("channel: malformed scalar or point encoding")

	// InvalidProof
	ErrInvalidOpeningProof = errors.New("channel: PoK of commitment opening failed")
	ErrInvalidSignature    = errors.New("channel: signature on wallet failed verification")
	ErrInvalidNIZK         = errors.New("channel: composite NIZK verification failed")

	// PolicyViolation
	ErrEpsilonTooLarge   = errors.New("channel: |epsilon| exceeds configured maximum")
	ErrBalanceNegative   = errors.New("channel: resulting balance would be negative")
	ErrAlreadyRevoked    = errors.New("channel: one-time key already revoked")

	// ReplayDetected
	ErrReplayedKey = errors.New("channel: one-time key already used on this channel")

	// StateError
	ErrWrongState = errors.New("channel: operation invoked in the wrong protocol state")

	// AuthError
	ErrRevocationAuth = errors.New("channel: EC signature check on revocation token failed")
)
