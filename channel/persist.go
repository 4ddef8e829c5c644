package channel

import (
	"github.com/boltlabs-coin/boltchan/revocation"
	"github.com/boltlabs-coin/boltchan/store"
	"github.com/boltlabs-coin/boltchan/wire"
)

// SaveCustomerWallet persists the wallet a customer needs to resume a
// channel after a restart: its current four-slot opening, randomizer,
// and the merchant's signature over it.
func SaveCustomerWallet(db *store.DB, name string, cs *CustomerState) error {
	encoded, err := wire.EncodeWalletAndSig(cs.Wallet, cs.R, cs.Sig)
	if err != nil {
		return err
	}
	return db.PutWallet(name, encoded)
}

// LoadCustomerWallet reverses SaveCustomerWallet, reconstructing the
// Wallet, R and Sig fields of a CustomerState. It leaves the Pkc, Wsk
// and MerchPK fields as they are: the row carries pkc only inside the
// wallet vector, and holds neither the one-time secret key nor the
// merchant's public key.
func LoadCustomerWallet(db *store.DB, name string, cs *CustomerState) error {
	data, err := db.LoadWallet(name)
	if err != nil {
		return err
	}
	w, r, sig, err := wire.DecodeWalletAndSig(data)
	if err != nil {
		return err
	}
	cs.Wallet = w
	cs.R = r
	cs.Sig = sig
	return nil
}

// SaveLedger persists S's revocation ledger under name.
func SaveLedger(db *store.DB, name string, s *State) error {
	return db.PutLedger(name, s.Keys.Snapshot())
}

// LoadLedger restores S's revocation ledger from whatever was
// previously persisted under name; a channel with no persisted rows
// gets an empty ledger, matching NewChannel's initial state.
func LoadLedger(db *store.DB, name string, s *State) error {
	entries, err := db.LoadLedger(name)
	if err != nil {
		return err
	}
	s.Keys = revocation.Restore(entries)
	return nil
}
