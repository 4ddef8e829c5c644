package channel_test

import (
	"math/big"
	"testing"

	"github.com/boltlabs-coin/boltchan/channel"
	"github.com/boltlabs-coin/boltchan/config"
	"github.com/boltlabs-coin/boltchan/store"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

func scalarInt64(t *testing.T, s interface{ BigInt(*big.Int) *big.Int }) int64 {
	t.Helper()
	bi := new(big.Int)
	s.BigInt(bi)
	return bi.Int64()
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.MaxBalance = 255
	cfg.EpsilonMax = 255
	cfg.TxFee = 0
	return cfg
}

// establishedChannel builds a merchant and customer that have
// completed Establish with B_c0=90, B_m0=20, matching spec.md's
// testable-properties scenario.
func establishedChannel(t *testing.T) (channel.PublicParams, *channel.State, *channel.CustomerState, *channel.MerchantState) {
	t.Helper()

	cfg := testConfig()
	pp, err := channel.Setup(cfg, false)
	require.NoError(t, err)

	sk, pk, err := channel.KeyGen(pp)
	require.NoError(t, err)
	ms := channel.InitMerchant(pp, btcutil.Amount(90), btcutil.Amount(20), sk, pk)

	s := channel.NewChannel("test", false)
	tok, cs, err := channel.InitCustomer(pp, s, btcutil.Amount(90), btcutil.Amount(20), pk)
	require.NoError(t, err)

	pok, err := channel.EstablishCustomerPhase1(pp, cs)
	require.NoError(t, err)

	sig, err := channel.EstablishMerchantPhase2(pp, s, ms, tok, pok)
	require.NoError(t, err)

	ok, err := channel.EstablishCustomerFinal(pp, pk, cs, sig)
	require.NoError(t, err)
	require.True(t, ok)

	return pp, s, cs, ms
}

func doPayment(t *testing.T, pp channel.PublicParams, s *channel.State, cs *channel.CustomerState, ms *channel.MerchantState, epsilon int64) channel.PaymentProof {
	t.Helper()

	newTok, newWallet, proof, err := channel.PayCustomerPhase1(pp, s, cs, epsilon)
	require.NoError(t, err)

	rt, err := channel.PayMerchantPhase1(pp, s, proof, ms)
	require.NoError(t, err)

	rho, err := channel.PayCustomerPhase2(pp, cs, ms.PK, rt)
	require.NoError(t, err)

	sig, err := channel.PayMerchantPhase2(pp, s, proof, ms, rho)
	require.NoError(t, err)

	ok, err := channel.PayCustomerFinal(pp, ms.PK, cs, newTok, newWallet, sig)
	require.NoError(t, err)
	require.True(t, ok)

	return proof
}

func TestEstablishThenTwoPaymentsMatchesExpectedBalances(t *testing.T) {
	t.Parallel()

	pp, s, cs, ms := establishedChannel(t)

	doPayment(t, pp, s, cs, ms, 20)
	doPayment(t, pp, s, cs, ms, 20)

	require.Equal(t, int64(50), scalarInt64(t, cs.Wallet.Bc))
	require.Equal(t, int64(60), scalarInt64(t, cs.Wallet.Bm))

	// A -20 payment is a refund back to the customer.
	doPayment(t, pp, s, cs, ms, -20)
	require.Equal(t, int64(70), scalarInt64(t, cs.Wallet.Bc))
	require.Equal(t, int64(40), scalarInt64(t, cs.Wallet.Bm))
}

func TestPayMerchantPhase1RejectsReplayedKey(t *testing.T) {
	t.Parallel()

	pp, s, cs, ms := establishedChannel(t)

	_, _, proof, err := channel.PayCustomerPhase1(pp, s, cs, 20)
	require.NoError(t, err)

	_, err = channel.PayMerchantPhase1(pp, s, proof, ms)
	require.NoError(t, err)

	// Re-presenting the same proof while the merchant is mid-payment is
	// stopped by the phase guard first.
	_, err = channel.PayMerchantPhase1(pp, s, proof, ms)
	require.ErrorIs(t, err, channel.ErrWrongState)

	// With the channel back in the phase that accepts a proof, the
	// retiring key is already in the ledger and must be rejected as a
	// replay, not silently re-processed.
	s.Phase = channel.PhasePayAwaitRT
	_, err = channel.PayMerchantPhase1(pp, s, proof, ms)
	require.ErrorIs(t, err, channel.ErrReplayedKey)
}

func TestResolveAwardsFullEscrowForRevokedClosure(t *testing.T) {
	t.Parallel()

	pp, s, cs, ms := establishedChannel(t)

	staleClosure := channel.ClosureC{Wallet: cs.Wallet, Sig: cs.Sig, Wpk: cs.Wsk.PubKey()}

	doPayment(t, pp, s, cs, ms, 20)

	require.True(t, s.Keys.Revoked(staleClosure.Wpk))

	bc, bm := channel.Resolve(pp, s, ms, &staleClosure, nil)
	require.Equal(t, int64(0), bc)
	require.Equal(t, int64(110), bm)
}

func TestResolveAwardsFinalBalancesForFreshClosure(t *testing.T) {
	t.Parallel()

	pp, s, cs, ms := establishedChannel(t)
	doPayment(t, pp, s, cs, ms, 20)

	closure, err := channel.CustomerRefund(pp, s, cs)
	require.NoError(t, err)

	bc, bm := channel.Resolve(pp, s, ms, &closure, nil)
	require.Equal(t, int64(70), bc)
	require.Equal(t, int64(40), bm)
}

func TestResolveAwardsFullEscrowWhenNoClosureCPublished(t *testing.T) {
	t.Parallel()

	pp, s, _, ms := establishedChannel(t)

	bc, bm := channel.Resolve(pp, s, ms, nil, nil)
	require.Equal(t, int64(0), bc)
	require.Equal(t, int64(110), bm)
}

func TestMerchantRefuteRejectsNonRevokedClosure(t *testing.T) {
	t.Parallel()

	pp, s, cs, ms := establishedChannel(t)

	closure, err := channel.CustomerRefund(pp, s, cs)
	require.NoError(t, err)

	_, ok := channel.MerchantRefute(pp, s, ms, closure)
	require.False(t, ok)
}

func TestVerifyThirdPartyPayment(t *testing.T) {
	t.Parallel()

	require.True(t, channel.VerifyThirdPartyPayment(20, 0, 20, 0))
	require.True(t, channel.VerifyThirdPartyPayment(20, 1, 20, 2))
	require.False(t, channel.VerifyThirdPartyPayment(20, 0, 21, 0))
	require.False(t, channel.VerifyThirdPartyPayment(20, -1, 20, 0))
}

func TestPayCustomerPhase1RejectsEpsilonBeyondMax(t *testing.T) {
	t.Parallel()

	pp, s, cs, _ := establishedChannel(t)

	_, _, _, err := channel.PayCustomerPhase1(pp, s, cs, 256)
	require.ErrorIs(t, err, channel.ErrEpsilonTooLarge)
}

func TestSaveLoadCustomerWalletAndLedgerRoundTrip(t *testing.T) {
	t.Parallel()

	pp, s, cs, ms := establishedChannel(t)
	doPayment(t, pp, s, cs, ms, 20)

	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, channel.SaveCustomerWallet(db, s.Name, cs))
	require.NoError(t, channel.SaveLedger(db, s.Name, s))

	restored := &channel.CustomerState{}
	require.NoError(t, channel.LoadCustomerWallet(db, s.Name, restored))
	require.Equal(t, int64(70), scalarInt64(t, restored.Wallet.Bc))
	require.Equal(t, int64(40), scalarInt64(t, restored.Wallet.Bm))

	restoredState := channel.NewChannel(s.Name, false)
	require.NoError(t, channel.LoadLedger(db, s.Name, restoredState))
}

func TestPayCustomerPhase1RejectsNegativeResultingBalance(t *testing.T) {
	t.Parallel()

	pp, s, cs, _ := establishedChannel(t)

	_, _, _, err := channel.PayCustomerPhase1(pp, s, cs, -91)
	require.ErrorIs(t, err, channel.ErrBalanceNegative)
}

// TestPaymentWithFeeShrinksTotalEscrow exercises a nonzero TxFee: each
// completed payment must burn the fee out of the total escrow rather
// than move it to either party, so B_c(final)+B_m(final) comes out
// strictly below B_c0+B_m0 by exactly the fee.
func TestPaymentWithFeeShrinksTotalEscrow(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.TxFee = 1
	pp, err := channel.Setup(cfg, false)
	require.NoError(t, err)

	sk, pk, err := channel.KeyGen(pp)
	require.NoError(t, err)
	ms := channel.InitMerchant(pp, btcutil.Amount(90), btcutil.Amount(20), sk, pk)

	s := channel.NewChannel("test-fee", false)
	tok, cs, err := channel.InitCustomer(pp, s, btcutil.Amount(90), btcutil.Amount(20), pk)
	require.NoError(t, err)

	pok, err := channel.EstablishCustomerPhase1(pp, cs)
	require.NoError(t, err)
	sig, err := channel.EstablishMerchantPhase2(pp, s, ms, tok, pok)
	require.NoError(t, err)
	ok, err := channel.EstablishCustomerFinal(pp, pk, cs, sig)
	require.NoError(t, err)
	require.True(t, ok)

	doPayment(t, pp, s, cs, ms, 20)

	bc := scalarInt64(t, cs.Wallet.Bc)
	bm := scalarInt64(t, cs.Wallet.Bm)
	require.Equal(t, int64(69), bc)
	require.Equal(t, int64(40), bm)
	require.Equal(t, int64(90+20-1), bc+bm)
}
