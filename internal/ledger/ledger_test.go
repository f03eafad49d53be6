package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const wallet = "0xAbC0000000000000000000000000000000000001"

func TestAvailableNeverNegative(t *testing.T) {
	l := New()
	l.RecordSpend(wallet, 500)
	require.EqualValues(t, 0, l.Available(wallet, 100))
	require.EqualValues(t, 0, l.Available(wallet, 0))
	require.EqualValues(t, 500, l.Available(wallet, 1000))
}

func TestSpendRefund(t *testing.T) {
	l := New()
	l.RecordSpend(wallet, 300)
	require.EqualValues(t, 300, l.Reserved(wallet))

	// Wallet casing does not split reservations.
	l.RecordSpend("0xabc0000000000000000000000000000000000001", 200)
	require.EqualValues(t, 500, l.Reserved(wallet))

	l.RecordRefund(wallet, 100)
	require.EqualValues(t, 400, l.Reserved(wallet))

	// Refund floors at zero.
	l.RecordRefund(wallet, 10000)
	require.EqualValues(t, 0, l.Reserved(wallet))

	// Non-positive amounts are ignored.
	l.RecordSpend(wallet, -5)
	require.EqualValues(t, 0, l.Reserved(wallet))
}

func TestReconcileTruncates(t *testing.T) {
	l := New()
	l.RecordSpend(wallet, 900)

	// Reconcile never increases the reservation.
	l.Reconcile(wallet, 2000)
	require.EqualValues(t, 900, l.Reserved(wallet))

	// Drift: on-chain below reservation truncates it.
	l.Reconcile(wallet, 400)
	require.EqualValues(t, 400, l.Reserved(wallet))

	l.Reconcile(wallet, 0)
	require.EqualValues(t, 0, l.Reserved(wallet))
}
