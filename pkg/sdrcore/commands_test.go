package sdrcore

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandStatus(t *testing.T) {
	tests := []struct {
		line   string
		status int
	}{
		{"", 0},
		{"# comment", 0},
		{"setRXFilter 300 3000", 0},
		{"setRXFilter 30000 31000", -1},
		{"setRXFilter 100 30000", -2},
		{"setRXFilter 1000 1005", -3},
		{"setFilter 300 3000 1", 0},
		{"setFilter 300 3000 2", -1},
		{"setTXFilter -24000 100", -1},
		{"setRXFilter 300", -1},
		{"setRXFilter abc 3000", -1},
		{"noSuchCommand 1", -1},
		{"setMode 12", -1},
		{"setMode 6 1", 0},
		{"setOsc 30000", -1},
		{"setOsc -11025", 0},
		{"setRXPan 1.5", -1},
		{"setRXPan", 0},
		{"setRXOn 0", -1},
		{"setRXOn 3", 0},
		{"setRXOn 4", -1},
		{"setRXOff 2", -1},
		{"setRXListen 4", -1},
		{"setGain 0 1 -6", 0},
		{"setGain 0 2 -6", -1},
		{"setANFvals 500 20 0.01 0.00001", -1},
		{"setANFvals 64 16 0.01 0.00001", 0},
		{"setBlkNR_val 0.0002", 0},
		{"setBlkNRval -1", -1},
		{"setRXAGC 9", -1},
		{"setRXAGCHangThreshold 2", -1},
		{"setTXCarrierLevel 1.5", -1},
		{"setTXMeterMode 11", -1},
		{"setGrphRXEQ3 0 1 2", -1},
		{"setGrphRXEQ3 0 1 2 3", 0},
		{"setGrphTXEQ10 0 1 2 3 4 5 6 7 8 9 10", 0},
		{"setTXWaveShapeFunc 3 0 0.5", -1},
		{"setTXWaveShapeFunc 3 0 0.5 1", 0},
		{"setSpectrumType 1 2 3 4", -1},
		{"setSpectrumType 9", -1},
		{"setSpectrumType 3 0 1", 0},
		{"setSpectrumWindow 5", 0},
		{"setNewBuflen 100", -1},
		{"setNewBuflen 128 1", -1},
		{"setNewBuflen", -1},
		{"setFMDeemph 1 50", 0},
		{"setFMDeemph 1 -5", -1},
		{"@4 setMode 1", -1},
		{"@x setMode 1", -1},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			w := newTestWorkspace(t, 256)
			resp := w.Update(tt.line)
			assert.Equal(t, tt.status, resp.Status, resp.Text)
		})
	}
}

func TestFailedCommandsLeaveStateAlone(t *testing.T) {
	w := newTestWorkspace(t, 256)
	mustUpdate(t, w, "setRXFilter 300 3000")
	assert.Equal(t, -3, w.Update("setRXFilter 1000 1005").Status)
	assert.Equal(t, "getFilter 300.000000 3000.000000", w.Update("getFilter").Text)

	assert.Equal(t, -1, w.Update("setGrphRXEQ10 0 1 2").Status)
	assert.Equal(t, "getGrphRXEQ 0 3 0.000000 0.000000 0.000000 0.000000", w.Update("getGrphRXEQ").Text)
}

func TestGettersRoundTrip(t *testing.T) {
	w := newTestWorkspace(t, 256)
	tests := []struct {
		set, get, want string
	}{
		{"setMode 5", "getMode", "getMode 5"},
		{"setMode 6 1", "getMode 1", "getMode 6"},
		{"setOsc 1500 0", "getOsc", "getOsc 1500.000000"},
		{"setcorrectIQ 20 -30", "getRXIQ", "getRXIQ 20.000000 -30.000000 0.000000"},
		{"setcorrectTXIQgain 10", "getTXIQ", "getTXIQ 0.000000 10.000000 0.000000"},
		{"setRXListen 2", "getRXListen", "getRXListen 2"},
		{"setSquelch -90", "getRXSquelch", "getRXSquelch 0 -90.000000"},
		{"setTXSquelchSt 1", "getTXSquelch", "getTXSquelch 1 -40.000000"},
		{"setCompand 2", "getTXCompand", "getTXCompand 0 2.000000"},
		{"setCompandSt 1 0", "getRXCompand", "getRXCompand 1 0.000000"},
		{"setTXCarrierLevel 0.25", "getTXCarrierLevel", "getTXCarrierLevel 0.250000"},
		{"setDCBlock 1", "getDCBlock", "getDCBlock 1"},
		{"setRXOn 1", "getRXCount", "getRXCount 2"},
		{"setSpectrumType", "getSpectrumInfo", "getSpectrumInfo 0 11 2 1 2"},
		{"setNB 1", "getNB", "getNB 1 3.300000"},
		{"setBIN 1", "getBIN", "getBIN 1"},
	}
	for _, tt := range tests {
		mustUpdate(t, w, tt.set)
		assert.Equal(t, tt.want, w.Update(tt.get).Text, tt.set)
	}
}

func TestIQAdaptiveSwitch(t *testing.T) {
	w := newTestWorkspace(t, 256)
	assert.True(t, w.rx[0].iq.Adaptive())
	assert.False(t, w.tx.iq.Adaptive())

	mustUpdate(t, w, "setcorrectIQmu 0.01")
	x := []complex64{complex(0.5, 0.1), complex(0.2, -0.4)}
	w.rx[0].iq.Apply(x)
	require.NotZero(t, w.rx[0].iq.Weight())

	mustUpdate(t, w, "setcorrectIQadaptive 0")
	assert.False(t, w.rx[0].iq.Adaptive())
	assert.Zero(t, w.rx[0].iq.Weight())
	y := []complex64{complex(0.5, 0.1), complex(0.2, -0.4)}
	want := append([]complex64(nil), y...)
	w.rx[0].iq.Apply(y)
	assert.Equal(t, want, y)

	mustUpdate(t, w, "setcorrectTXIQadaptive 1")
	assert.True(t, w.tx.iq.Adaptive())
	assert.Equal(t, -1, w.Update("setcorrectIQadaptive").Status)
}

func TestReceiverRedirect(t *testing.T) {
	w := newTestWorkspace(t, 256)
	mustUpdate(t, w, "@2 setRXFilter -3000 -300", "- @3 setMode 0 0")

	assert.Equal(t, "getFilter -3000.000000 -300.000000", w.Update("@2 getFilter").Text)
	assert.Equal(t, "getFilter -4800.000000 4800.000000", w.Update("getFilter").Text)
	assert.Equal(t, LSB, w.rx[3].mode)
	assert.Equal(t, USB, w.rx[0].mode)
	assert.Equal(t, USB, w.tx.mode)
}

func TestSavedCommandsAreReplayed(t *testing.T) {
	w := newTestWorkspace(t, 256)
	mustUpdate(t, w,
		"!setRXFilter 300 3000",
		"setOsc 100",
		"!-@1 setMode 5 0",
		"!setNewBuflen 512",
	)
	assert.NotEqual(t, 0, w.Update("!setRXFilter 5 6").Status)
	assert.Equal(t, []string{"setRXFilter 300 3000", "-@1 setMode 5 0"}, w.replay)

	assert.Equal(t, 512, w.Params().BlockSize)
	assert.Equal(t, 300.0, w.rx[0].lo)
	assert.Equal(t, FMN, w.rx[1].mode)
	assert.Equal(t, 0.0, w.rx[0].osc.Frequency())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		err  bool
	}{
		{"usb", USB, false},
		{"FMN", FMN, false},
		{"Sam", SAM, false},
		{"6", AM, false},
		{"12", 0, true},
		{"-1", 0, true},
		{"ssb", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), modeNames[got])
		})
	}
}

func TestCommandsListed(t *testing.T) {
	w := newTestWorkspace(t, 64)
	names := w.Commands()
	sort.Strings(names)
	for _, want := range []string{"setFilter", "setBlkANF_val", "setBlkANFval", "reqMeter", "setNewBuflen"} {
		i := sort.SearchStrings(names, want)
		require.Less(t, i, len(names))
		assert.Equal(t, want, names[i])
	}
}
