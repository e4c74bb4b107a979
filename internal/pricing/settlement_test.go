package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	s, err := Reconcile(dec("11187"), dec("5000"), nil)
	require.NoError(t, err)
	requireDecimal(t, "6187", s.AmountDue)
	require.True(t, s.Blocked)
	require.ErrorIs(t, s.Err(), ErrOutstandingBalance)

	s, err = Reconcile(dec("11187"), dec("12000"), nil)
	require.NoError(t, err)
	requireDecimal(t, "0", s.AmountDue)
	requireDecimal(t, "813", s.Overpayment)
	require.False(t, s.Blocked)
	require.NoError(t, s.Err())
}

func TestReconcileOverride(t *testing.T) {
	o := &Override{ActorID: "mgr-1", Role: "Manager", Reason: "corporate account, invoiced monthly"}
	s, err := Reconcile(dec("11187"), dec("5000"), o)
	require.NoError(t, err)
	require.False(t, s.Blocked)
	require.NotNil(t, s.OverrideApplied)
	require.Equal(t, RoleManager, s.OverrideApplied.Role)
	requireDecimal(t, "6187", s.AmountDue)

	s, err = Reconcile(dec("100"), dec("100"), o)
	require.NoError(t, err)
	require.Nil(t, s.OverrideApplied, "override is only recorded when it releases a balance")
}

func TestReconcileOverrideValidation(t *testing.T) {
	_, err := Reconcile(dec("100"), dec("0"), &Override{ActorID: "c-1", Role: "cashier", Reason: "x"})
	require.ErrorIs(t, err, ErrOverrideNotAuthorized)

	_, err = Reconcile(dec("100"), dec("0"), &Override{ActorID: "o-1", Role: RoleOwner, Reason: "  "})
	require.ErrorIs(t, err, ErrOverrideReasonRequired)
}

func TestReconcileNeverNegative(t *testing.T) {
	for _, paid := range []string{"0", "0.01", "99.99", "100", "100.01", "1000000"} {
		s, err := Reconcile(dec("100"), dec(paid), nil)
		require.NoError(t, err)
		require.False(t, s.AmountDue.IsNegative())
		require.False(t, s.Overpayment.IsNegative())
	}
	_, err := Reconcile(dec("100"), dec("-1"), nil)
	require.ErrorIs(t, err, ErrNegativeAmount)
}
