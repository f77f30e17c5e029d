package meter

import (
	"testing"

	"github.com/norasector/sdrcore/pkg/dsp/cxops"
	"github.com/norasector/sdrcore/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRXPoints(t *testing.T) {
	b := New()
	x := []complex64{complex(0.5, -0.25), complex(-1, 0.1)}

	b.RXPreConv(1, x, cxops.Scalar)
	assert.InDelta(t, 0, b.RX(1, ADCReal), 1e-6)
	assert.InDelta(t, util.DBP(0.25), b.RX(1, ADCImag), 1e-5)

	norm := b.RXPostFilter(1, x, cxops.Unrolled)
	sum := 0.25 + 0.0625 + 1 + 0.01
	assert.InDelta(t, sum/2, norm, 1e-6)
	assert.InDelta(t, util.Log10P(sum), b.RX(1, SignalStrength), 1e-5)
	assert.InDelta(t, util.DamPlus(-util.Kinda, util.Log10P(sum)), b.RX(1, AvgSignalStrength), 1e-5)

	b.RXPostAGC(1, 10)
	assert.InDelta(t, 20, b.RX(1, AGCGain), 1e-9)
	assert.Equal(t, -util.Kinda, b.RX(0, AGCGain))
}

func TestTXLevelGatedByMode(t *testing.T) {
	b := New()
	x := []complex64{0.5, -0.5}

	b.TXLevel(Comp, x)
	assert.Equal(t, -util.Kinda, b.TX(Comp))

	require.NoError(t, b.SetTXMode(Comp))
	b.TXLevel(Comp, x)
	assert.NotEqual(t, -util.Kinda, b.TX(Comp))

	b.TXLevelerGain(2)
	assert.Equal(t, -util.Kinda, b.TX(LevelerGain))
	require.NoError(t, b.SetTXMode(Leveler))
	b.TXLevelerGain(2)
	assert.InDelta(t, util.DBP(2), b.TX(LevelerGain), 1e-9)

	assert.Error(t, b.SetTXMode(TXPoints))
	assert.Equal(t, Leveler, b.TXMode())
}

func TestTXPowerAlwaysMetered(t *testing.T) {
	b := New()
	b.TXPower([]complex64{complex(1, 1), 0}, cxops.Scalar)
	assert.InDelta(t, 1, b.TX(Power), 1e-9)
}

func TestSnapshotIsolatesLiveValues(t *testing.T) {
	b := New()
	b.RXPostAGC(0, 1)
	b.Snapshot(42, SideRX)
	b.RXPostAGC(0, 100)

	r := b.Report()
	assert.Equal(t, 42, r.Label)
	assert.Equal(t, SideRX, r.Side)
	assert.InDelta(t, 0, r.RX[0][AGCGain], 1e-9)

	b.TXPower([]complex64{2}, cxops.Scalar)
	b.Snapshot(43, SideTX)
	r = b.Report()
	assert.Equal(t, SideTX, r.Side)
	assert.InDelta(t, 4, r.TX[Power], 1e-9)
	assert.Equal(t, "pwr", Power.String())
	assert.Equal(t, "agc_gain", AGCGain.String())
}
