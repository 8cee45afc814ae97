package tax

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeVAT(t *testing.T) {
	ret := ComputeVAT(100000, 40000, 5)

	require.InDelta(t, 5000.0, ret.OutputVAT, 0.001)
	require.InDelta(t, 2000.0, ret.InputVAT, 0.001)
	require.InDelta(t, 3000.0, ret.NetPayable, 0.001)
}

func TestComputeVATRefundPosition(t *testing.T) {
	ret := ComputeVAT(10000, 50000, 5)
	require.InDelta(t, -2000.0, ret.NetPayable, 0.001)
}

func TestComputeVATRoundsHalfUp(t *testing.T) {
	// 33.335 rounds up to 33.34 at 5%.
	ret := ComputeVAT(666.70, 0, 5)
	require.InDelta(t, 33.34, ret.OutputVAT, 0.0001)
}

func TestVATPortion(t *testing.T) {
	net, vat := VATPortion(105, 5)
	require.InDelta(t, 100.0, net, 0.001)
	require.InDelta(t, 5.0, vat, 0.001)
}

func TestVATOn(t *testing.T) {
	require.InDelta(t, 5.0, VATOn(100, 5), 0.001)
	require.InDelta(t, 0.0, VATOn(0, 5), 0.001)
}

func TestComputeCorporateAboveThreshold(t *testing.T) {
	ct := ComputeCorporate(500000, 9, 375000)
	require.InDelta(t, 125000.0, ct.TaxableProfit, 0.001)
	require.InDelta(t, 11250.0, ct.TaxDue, 0.001)
}

func TestComputeCorporateBelowThreshold(t *testing.T) {
	ct := ComputeCorporate(200000, 9, 375000)
	require.Zero(t, ct.TaxableProfit)
	require.Zero(t, ct.TaxDue)
}

func TestComputeCorporateLoss(t *testing.T) {
	ct := ComputeCorporate(-50000, 9, 375000)
	require.Zero(t, ct.TaxDue)
}
