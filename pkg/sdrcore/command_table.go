package sdrcore

import (
	"github.com/norasector/sdrcore/pkg/dsp/agc"
	"github.com/norasector/sdrcore/pkg/dsp/demodulators/fm"
	"github.com/norasector/sdrcore/pkg/dsp/iqcorrect"
	"github.com/norasector/sdrcore/pkg/dsp/meter"
	"github.com/norasector/sdrcore/pkg/dsp/spectrum"
	"github.com/norasector/sdrcore/pkg/util"
)

const defaultDeemphasisUs = 75.0

func newCommandTable() map[string]command {
	return map[string]command{
		// filter, oscillator and mode
		"setFilter":     cmdFilter(RX, true),
		"setRXFilter":   cmdFilter(RX, false),
		"setTXFilter":   cmdFilter(TX, false),
		"getFilter":     cmdGetFilter,
		"setOsc":        cmdOsc,
		"getOsc":        cmdGetOsc,
		"setMode":       cmdMode,
		"getMode":       cmdGetMode,
		"setRXOn":       cmdRXActive(true),
		"setRXOff":      cmdRXActive(false),
		"getRXCount":    cmdRXCount,
		"setRXListen":   cmdRXListen,
		"getRXListen":   func(w *Workspace, c *call) (string, error) { return reply(c.name, "%d", w.listen), nil },
		"setRXPan":      cmdRXPan,
		"getRXPan":      func(w *Workspace, c *call) (string, error) { return reply(c.name, "%f", w.rx[c.k].pan), nil },
		"setGain":       cmdGain,
		"getRXGain":     cmdGetGain(RX),
		"getTXGain":     cmdGetGain(TX),
		"setBIN":        rxFlag(func(r *Receiver, on bool) { r.binaural = on }),
		"getBIN":        func(w *Workspace, c *call) (string, error) { return reply(c.name, "%d", btoi(w.rx[c.k].binaural)), nil },
		"setFMDeemph":   cmdFMDeemph,
		"setFMDetector": cmdFMDetector,

		// IQ
		"setcorrectIQ":           cmdIQ(RX),
		"setcorrectIQphase":      cmdIQPart(RX, true),
		"setcorrectIQgain":       cmdIQPart(RX, false),
		"setcorrectIQmu":         cmdIQMu,
		"setcorrectIQadaptive":   cmdIQAdaptive(RX),
		"setcorrectTXIQadaptive": cmdIQAdaptive(TX),
		"setcorrectTXIQ":         cmdIQ(TX),
		"setcorrectTXIQphase":    cmdIQPart(TX, true),
		"setcorrectTXIQgain":     cmdIQPart(TX, false),
		"getRXIQ":                cmdGetIQ(RX),
		"getTXIQ":                cmdGetIQ(TX),

		// AGC and leveler
		"setRXAGC":              cmdAGCMode,
		"setRXAGCAttack":        rxAGC(func(a *agc.AGC, v float64) error { return a.SetAttack(v) }),
		"setRXAGCDecay":         rxAGC(func(a *agc.AGC, v float64) error { return a.SetDecay(v) }),
		"setRXAGCHang":          rxAGC(func(a *agc.AGC, v float64) error { return a.SetHang(v) }),
		"setRXAGCSlope":         rxAGC(func(a *agc.AGC, v float64) error { a.SetSlope(util.DBToLinear(v)); return nil }),
		"setRXAGCHangThreshold": rxAGC(setHangThreshold),
		"setRXAGCLimit":         rxAGC(func(a *agc.AGC, v float64) error { return a.SetTop(v) }),
		"setRXAGCTop":           rxAGC(func(a *agc.AGC, v float64) error { return a.SetTop(util.DBToLinear(v)) }),
		"setRXAGCBottom":        rxAGC(func(a *agc.AGC, v float64) error { return a.SetBottom(util.DBToLinear(v)) }),
		"setRXAGCCompression":   rxAGC(func(a *agc.AGC, v float64) error { return a.SetCompression(v) }),
		"setfixedAGC":           cmdFixedAGC,
		"getRXAGC":              cmdGetAGC,
		"setTXLevelerAttack":    txLeveler(func(a *agc.AGC, v float64) error { return a.SetLevelerAttack(v) }),
		"setTXLevelerDecay":     txLeveler(func(a *agc.AGC, v float64) error { return a.SetDecay(v) }),
		"setTXLevelerHang":      txLeveler(func(a *agc.AGC, v float64) error { return a.SetHang(v) }),
		"setTXLevelerTop":       txLeveler(func(a *agc.AGC, v float64) error { return a.SetTop(util.DBToLinear(v)) }),
		"setTXLevelerSt":        txFlag(func(t *Transmitter, on bool) { t.levelerOn = on }),
		"getTXLeveler":          cmdGetLeveler,

		// noise
		"setANF":        rxFlag(func(r *Receiver, on bool) { r.anfOn = on }),
		"setNR":         rxFlag(func(r *Receiver, on bool) { r.anrOn = on }),
		"setANFvals":    cmdLMSVals(false),
		"setNRvals":     cmdLMSVals(true),
		"setBlkANF":     rxFlag(func(r *Receiver, on bool) { r.banfOn = on }),
		"setBlkNR":      rxFlag(func(r *Receiver, on bool) { r.banrOn = on }),
		"setBlkANFval":  cmdBlockLMSVal(false),
		"setBlkANF_val": cmdBlockLMSVal(false),
		"setBlkNRval":   cmdBlockLMSVal(true),
		"setBlkNR_val":  cmdBlockLMSVal(true),
		"setNB":         rxFlag(func(r *Receiver, on bool) { r.nbOn = on }),
		"setNBvals":     rxValue(func(r *Receiver, v float64) error { r.nb.SetThreshold(v); return nil }),
		"setSDROM":      rxFlag(func(r *Receiver, on bool) { r.sdromOn = on }),
		"setSDROMvals":  rxValue(func(r *Receiver, v float64) error { r.sdrom.SetThreshold(v); return nil }),
		"getANF":        cmdGetLMS(false),
		"getANR":        cmdGetLMS(true),
		"getNR":         cmdGetLMS(true),
		"getBlkANF":     cmdGetBlockLMS(false),
		"getBlkNR":      cmdGetBlockLMS(true),
		"getNB": func(w *Workspace, c *call) (string, error) {
			r := w.rx[c.k]
			return reply(c.name, "%d %f", btoi(r.nbOn), r.nb.Threshold()), nil
		},
		"getSDROM": func(w *Workspace, c *call) (string, error) {
			r := w.rx[c.k]
			return reply(c.name, "%d %f", btoi(r.sdromOn), r.sdrom.Threshold()), nil
		},

		// squelch and dynamics
		"setSquelch":                 cmdSquelch(RX, true, false),
		"setSquelchSt":               cmdSquelch(RX, true, true),
		"setTXSquelch":               cmdSquelch(TX, false, false),
		"setTXSquelchSt":             cmdSquelch(TX, false, true),
		"getRXSquelch":               cmdGetSquelch(RX),
		"getTXSquelch":               cmdGetSquelch(TX),
		"setCompand":                 cmdCompand(TX, true),
		"setRXCompand":               cmdCompand(RX, false),
		"setTXCompand":               cmdCompand(TX, false),
		"setCompandSt":               cmdCompandSt(TX, true),
		"setRXCompandSt":             cmdCompandSt(RX, false),
		"setTXCompandSt":             cmdCompandSt(TX, false),
		"getRXCompand":               cmdGetCompand(RX),
		"getTXCompand":               cmdGetCompand(TX),
		"setTXWaveShapeFunc":         cmdWaveShapeFunc,
		"setTXWaveShapeSt":           txFlag(func(t *Transmitter, on bool) { t.wvsOn = on }),
		"getTXWaveShape":             cmdGetWaveShape,
		"setDCBlock":                 cmdDCBlock,
		"setDCBlockSt":               cmdDCBlockSt,
		"getDCBlock":                 func(w *Workspace, c *call) (string, error) { return reply(c.name, "%d", btoi(w.tx.dcbOn)), nil },
		"setTXSpeechCompression":     txValue(func(t *Transmitter, v float64) error { t.spr.SetCompression(v); return nil }),
		"setTXSpeechCompressionGain": txValue(func(t *Transmitter, v float64) error { t.spr.SetCompression(v); return nil }),
		"setTXSpeechCompressionSt":   txFlag(func(t *Transmitter, on bool) { t.sprOn = on }),
		"getTXSpeechCompression": func(w *Workspace, c *call) (string, error) {
			return reply(c.name, "%d %f", btoi(w.tx.sprOn), util.DBP(w.tx.spr.MaxGain())), nil
		},
		"setTXCarrierLevel": txValue(setCarrierLevel),
		"getTXCarrierLevel": func(w *Workspace, c *call) (string, error) { return reply(c.name, "%f", w.tx.carrier), nil },
		"setTXMeterMode":    cmdTXMeterMode,
		"getTXMeterMode":    func(w *Workspace, c *call) (string, error) { return reply(c.name, "%d", int(w.meter.TXMode())), nil },
		"setSpotToneVals":   cmdSpotToneVals,
		"setSpotTone":       cmdSpotTone,
		"getSpotTone":       cmdGetSpotTone,

		// equalizer
		"setGrphRXEQ3":   cmdEQ3(RX),
		"setGrphTXEQ3":   cmdEQ3(TX),
		"setGrphRXEQ10":  cmdEQ10(RX),
		"setGrphTXEQ10":  cmdEQ10(TX),
		"setGrphRXEQcmd": cmdEQOn(RX),
		"setGrphTXEQcmd": cmdEQOn(TX),
		"getGrphRXEQ":    cmdGetEQ(RX),
		"getGrphTXEQ":    cmdGetEQ(TX),

		// run state, switching and test generator
		"setRunState":    cmdRunState,
		"getRunState":    func(w *Workspace, c *call) (string, error) { return reply(c.name, "%d", int(w.state)), nil },
		"setSWCH":        cmdSwitch,
		"setTRX":         cmdTRX,
		"getTRX":         func(w *Workspace, c *call) (string, error) { return reply(c.name, "%d", int(w.trx)), nil },
		"setTEST":        cmdTest,
		"setTestMode":    cmdTestMode,
		"setTestTone":    cmdTestTone,
		"setTestTwoTone": cmdTestTwoTone,
		"setTestNoise":   cmdTestNoise,
		"setTestThru":    cmdTestThru,
		"getTEST":        cmdGetTest,

		// spectrum
		"setSpectrumPolyphase": cmdSpectrumPolyphase,
		"setSpectrumWindow":    cmdSpectrumWindow,
		"setSpectrumType":      cmdSpectrumType,
		"getSpectrumInfo":      cmdGetSpectrumInfo,

		// workspace and reports
		"setNewBuflen": cmdNewBuflen,
		"getBuflen":    func(w *Workspace, c *call) (string, error) { return reply(c.name, "%d", w.params.BlockSize), nil },
		"setFinished":  cmdFinished,
		"reqMeter":     cmdReqMeter,
		"reqRXMeter":   cmdReqSideMeter(meter.SideRX),
		"reqTXMeter":   cmdReqSideMeter(meter.SideTX),
		"reqSpectrum":  cmdReqSpectrum(false),
		"reqScope":     cmdReqSpectrum(true),
	}
}

func rxFlag(set func(r *Receiver, on bool)) command {
	return func(w *Workspace, c *call) (string, error) {
		on, err := c.flag(0)
		if err != nil {
			return "", err
		}
		set(w.rx[c.k], on)
		return "", nil
	}
}

func txFlag(set func(t *Transmitter, on bool)) command {
	return func(w *Workspace, c *call) (string, error) {
		on, err := c.flag(0)
		if err != nil {
			return "", err
		}
		set(w.tx, on)
		return "", nil
	}
}

func rxValue(set func(r *Receiver, v float64) error) command {
	return func(w *Workspace, c *call) (string, error) {
		v, err := c.float(0)
		if err != nil {
			return "", err
		}
		if err := set(w.rx[c.k], v); err != nil {
			return "", asReject(err)
		}
		return "", nil
	}
}

func txValue(set func(t *Transmitter, v float64) error) command {
	return func(w *Workspace, c *call) (string, error) {
		v, err := c.float(0)
		if err != nil {
			return "", err
		}
		if err := set(w.tx, v); err != nil {
			return "", asReject(err)
		}
		return "", nil
	}
}

// --- filter, oscillator and mode

func cmdFilter(def TRX, sideArg bool) command {
	return func(w *Workspace, c *call) (string, error) {
		if err := c.need(2); err != nil {
			return "", err
		}
		lo, err := c.float(0)
		if err != nil {
			return "", err
		}
		hi, err := c.float(1)
		if err != nil {
			return "", err
		}
		trx := def
		if sideArg {
			s, ok, err := c.side(2)
			if err != nil {
				return "", err
			}
			if ok {
				trx = s
			}
		}
		if code := checkPassband(lo, hi, w.params.SampleRate); code != 0 {
			return "", reject(code, "passband %g..%g at %g Hz", lo, hi, w.params.SampleRate)
		}
		if trx == TX {
			err = w.tx.setFilter(lo, hi)
		} else {
			err = w.rx[c.k].setFilter(lo, hi)
		}
		if err != nil {
			return "", reject(-1, "%v", err)
		}
		return "", nil
	}
}

func cmdGetFilter(w *Workspace, c *call) (string, error) {
	trx, _, err := c.side(0)
	if err != nil {
		return "", err
	}
	if trx == TX {
		return reply(c.name, "%f %f", w.tx.lo, w.tx.hi), nil
	}
	r := w.rx[c.k]
	return reply(c.name, "%f %f", r.lo, r.hi), nil
}

func cmdOsc(w *Workspace, c *call) (string, error) {
	hz, err := c.float(0)
	if err != nil {
		return "", err
	}
	trx, ok, err := c.side(1)
	if err != nil {
		return "", err
	}
	if !util.BelowNyquist(hz, w.params.SampleRate) {
		return "", reject(-1, "oscillator %g Hz at %g Hz", hz, w.params.SampleRate)
	}
	if !ok || trx == RX {
		w.rx[c.k].osc.SetFrequency(hz)
	}
	if !ok || trx == TX {
		w.tx.osc.SetFrequency(hz)
	}
	return "", nil
}

func cmdGetOsc(w *Workspace, c *call) (string, error) {
	trx, _, err := c.side(0)
	if err != nil {
		return "", err
	}
	if trx == TX {
		return reply(c.name, "%f", w.tx.osc.Frequency()), nil
	}
	return reply(c.name, "%f", w.rx[c.k].osc.Frequency()), nil
}

func cmdMode(w *Workspace, c *call) (string, error) {
	v, err := c.int(0)
	if err != nil {
		return "", err
	}
	m := Mode(v)
	if !m.valid() {
		return "", reject(-1, "mode %d", v)
	}
	trx, ok, err := c.side(1)
	if err != nil {
		return "", err
	}
	if !ok || trx == RX {
		w.rx[c.k].setMode(m)
	}
	if !ok || trx == TX {
		w.tx.setMode(m)
	}
	return "", nil
}

func cmdGetMode(w *Workspace, c *call) (string, error) {
	trx, _, err := c.side(0)
	if err != nil {
		return "", err
	}
	if trx == TX {
		return reply(c.name, "%d", int(w.tx.mode)), nil
	}
	return reply(c.name, "%d", int(w.rx[c.k].mode)), nil
}

func cmdRXActive(on bool) command {
	return func(w *Workspace, c *call) (string, error) {
		k, err := c.intOr(0, c.k)
		if err != nil {
			return "", err
		}
		if k < 0 || k >= MaxRX {
			return "", reject(-1, "receiver %d", k)
		}
		if w.active[k] == on {
			return "", reject(-1, "receiver %d already in that state", k)
		}
		w.active[k] = on
		if on {
			w.rx[k].tick = 0
		}
		return "", nil
	}
}

func cmdRXCount(w *Workspace, c *call) (string, error) {
	n := 0
	for _, on := range w.active {
		if on {
			n++
		}
	}
	return reply(c.name, "%d", n), nil
}

func cmdRXListen(w *Workspace, c *call) (string, error) {
	k, err := c.int(0)
	if err != nil {
		return "", err
	}
	if k < 0 || k >= MaxRX {
		return "", reject(-1, "receiver %d", k)
	}
	w.listen = k
	return "", nil
}

func cmdRXPan(w *Workspace, c *call) (string, error) {
	pos, err := c.floatOr(0, defaultPan)
	if err != nil {
		return "", err
	}
	if pos < 0 || pos > 1 {
		return "", reject(-1, "pan %g outside [0,1]", pos)
	}
	w.rx[c.k].setPan(pos)
	return "", nil
}

func cmdGain(w *Workspace, c *call) (string, error) {
	if err := c.need(2); err != nil {
		return "", err
	}
	trx, _, err := c.side(0)
	if err != nil {
		return "", err
	}
	io, err := c.int(1)
	if err != nil {
		return "", err
	}
	if io != 0 && io != 1 {
		return "", reject(-1, "gain selector %d", io)
	}
	gain := 1.0
	if len(c.args) > 2 {
		db, err := c.float(2)
		if err != nil {
			return "", err
		}
		gain = util.DBToLinear(db)
	}
	var in, out *float64
	if trx == TX {
		in, out = &w.tx.gainIn, &w.tx.gainOut
	} else {
		r := w.rx[c.k]
		in, out = &r.gainIn, &r.gainOut
	}
	if io == 0 {
		*in = gain
	} else {
		*out = gain
	}
	return "", nil
}

func cmdGetGain(trx TRX) command {
	return func(w *Workspace, c *call) (string, error) {
		if trx == TX {
			return reply(c.name, "%f %f", util.DBP(w.tx.gainIn), util.DBP(w.tx.gainOut)), nil
		}
		r := w.rx[c.k]
		return reply(c.name, "%f %f", util.DBP(r.gainIn), util.DBP(r.gainOut)), nil
	}
}

func cmdFMDeemph(w *Workspace, c *call) (string, error) {
	on, err := c.flag(0)
	if err != nil {
		return "", err
	}
	us, err := c.floatOr(1, defaultDeemphasisUs)
	if err != nil {
		return "", err
	}
	if us <= 0 {
		return "", reject(-1, "de-emphasis %g us", us)
	}
	tau := 0.0
	if on {
		tau = us * 1e-6
	}
	if err := w.rx[c.k].fm.SetDeemphasis(tau); err != nil {
		return "", reject(-1, "%v", err)
	}
	return "", nil
}

func cmdFMDetector(w *Workspace, c *call) (string, error) {
	v, err := c.int(0)
	if err != nil {
		return "", err
	}
	if err := w.rx[c.k].fm.SetDetector(fm.Detector(v)); err != nil {
		return "", reject(-1, "%v", err)
	}
	return "", nil
}

// --- IQ

func corrector(w *Workspace, c *call, trx TRX) *iqcorrect.Corrector {
	if trx == TX {
		return w.tx.iq
	}
	return w.rx[c.k].iq
}

func cmdIQ(trx TRX) command {
	return func(w *Workspace, c *call) (string, error) {
		if err := c.need(2); err != nil {
			return "", err
		}
		v, err := c.floats(0, 2)
		if err != nil {
			return "", err
		}
		iq := corrector(w, c, trx)
		iq.SetPhase(0.001 * v[0])
		iq.SetGain(1 + 0.001*v[1])
		return "", nil
	}
}

func cmdIQPart(trx TRX, phase bool) command {
	return func(w *Workspace, c *call) (string, error) {
		v, err := c.float(0)
		if err != nil {
			return "", err
		}
		iq := corrector(w, c, trx)
		if phase {
			iq.SetPhase(0.001 * v)
		} else {
			iq.SetGain(1 + 0.001*v)
		}
		return "", nil
	}
}

func cmdIQMu(w *Workspace, c *call) (string, error) {
	mu, err := c.float(0)
	if err != nil {
		return "", err
	}
	if mu < 0 {
		return "", reject(-1, "mu %g", mu)
	}
	iq := w.rx[c.k].iq
	iq.SetMu(mu)
	if mu == 0 {
		iq.ResetWeight()
	}
	return "", nil
}

// cmdIQAdaptive switches the LMS image canceller. Switching it off drops the
// learned weight.
func cmdIQAdaptive(trx TRX) command {
	return func(w *Workspace, c *call) (string, error) {
		on, err := c.flag(0)
		if err != nil {
			return "", err
		}
		iq := corrector(w, c, trx)
		iq.SetAdaptive(on)
		if !on {
			iq.ResetWeight()
		}
		return "", nil
	}
}

func cmdGetIQ(trx TRX) command {
	return func(w *Workspace, c *call) (string, error) {
		iq := corrector(w, c, trx)
		return reply(c.name, "%f %f %f", iq.Phase()*1000, (iq.Gain()-1)*1000, iq.Mu()), nil
	}
}

// --- AGC and leveler

func rxAGC(set func(a *agc.AGC, v float64) error) command {
	return rxValue(func(r *Receiver, v float64) error { return set(r.agc, v) })
}

func txLeveler(set func(a *agc.AGC, v float64) error) command {
	return txValue(func(t *Transmitter, v float64) error { return set(t.leveler, v) })
}

func setHangThreshold(a *agc.AGC, v float64) error {
	if v < 0 || v > 1 {
		return reject(-1, "hang threshold %g outside [0,1]", v)
	}
	a.SetHangThreshold(v)
	return nil
}

func cmdAGCMode(w *Workspace, c *call) (string, error) {
	v, err := c.int(0)
	if err != nil {
		return "", err
	}
	if err := w.rx[c.k].agc.Preset(agc.Mode(v)); err != nil {
		return "", reject(-1, "%v", err)
	}
	return "", nil
}

func cmdFixedAGC(w *Workspace, c *call) (string, error) {
	g, err := c.float(0)
	if err != nil {
		return "", err
	}
	trx, ok, err := c.side(1)
	if err != nil {
		return "", err
	}
	if !ok || trx == RX {
		w.rx[c.k].agc.SetFix(g)
	}
	if !ok || trx == TX {
		w.tx.leveler.SetFix(g)
	}
	return "", nil
}

func cmdGetAGC(w *Workspace, c *call) (string, error) {
	a := w.rx[c.k].agc
	g := a.Gains()
	s := a.Settings()
	return reply(c.name, "%d %f %f %f %f %f",
		int(a.Mode()), util.DBP(g.Now), util.DBP(g.Top), util.DBP(g.Bottom), s.Slope, s.HangThresh), nil
}

func cmdGetLeveler(w *Workspace, c *call) (string, error) {
	g := w.tx.leveler.Gains()
	return reply(c.name, "%d %f %f", btoi(w.tx.levelerOn), util.DBP(g.Now), util.DBP(g.Top)), nil
}

// --- noise

func cmdLMSVals(nr bool) command {
	return func(w *Workspace, c *call) (string, error) {
		if err := c.need(4); err != nil {
			return "", err
		}
		taps, err := c.int(0)
		if err != nil {
			return "", err
		}
		delay, err := c.int(1)
		if err != nil {
			return "", err
		}
		v, err := c.floats(2, 2)
		if err != nil {
			return "", err
		}
		r := w.rx[c.k]
		l := r.anf
		if nr {
			l = r.anr
		}
		cfg := l.Config()
		cfg.Taps, cfg.Delay, cfg.Rate, cfg.Leakage = taps, delay, v[0], v[1]
		if err := l.SetConfig(cfg); err != nil {
			return "", reject(-1, "%v", err)
		}
		return "", nil
	}
}

func cmdBlockLMSVal(nr bool) command {
	return func(w *Workspace, c *call) (string, error) {
		rate, err := c.float(0)
		if err != nil {
			return "", err
		}
		r := w.rx[c.k]
		b := r.banf
		if nr {
			b = r.banr
		}
		cfg := b.Config()
		leak, err := c.floatOr(1, cfg.Leakage)
		if err != nil {
			return "", err
		}
		if rate <= 0 || leak < 0 {
			return "", reject(-1, "block lms rate %g leak %g", rate, leak)
		}
		cfg.Rate, cfg.Leakage = rate, leak
		b.SetConfig(cfg)
		return "", nil
	}
}

func cmdGetLMS(nr bool) command {
	return func(w *Workspace, c *call) (string, error) {
		r := w.rx[c.k]
		l, on := r.anf, r.anfOn
		if nr {
			l, on = r.anr, r.anrOn
		}
		cfg := l.Config()
		return reply(c.name, "%d %d %d %f %f", btoi(on), cfg.Taps, cfg.Delay, cfg.Rate, cfg.Leakage), nil
	}
}

func cmdGetBlockLMS(nr bool) command {
	return func(w *Workspace, c *call) (string, error) {
		r := w.rx[c.k]
		b, on := r.banf, r.banfOn
		if nr {
			b, on = r.banr, r.banrOn
		}
		return reply(c.name, "%d %f", btoi(on), b.Config().Rate), nil
	}
}

// --- squelch and dynamics

func (w *Workspace) squelchFor(c *call, trx TRX) *squelch {
	if trx == TX {
		return &w.tx.squelch
	}
	return &w.rx[c.k].squelch
}

func cmdSquelch(def TRX, sideArg, flag bool) command {
	return func(w *Workspace, c *call) (string, error) {
		v, err := c.float(0)
		if err != nil {
			return "", err
		}
		trx := def
		if sideArg {
			s, ok, err := c.side(1)
			if err != nil {
				return "", err
			}
			if ok {
				trx = s
			}
		}
		sq := w.squelchFor(c, trx)
		if flag {
			sq.on = v != 0
		} else {
			sq.thresh = v
		}
		return "", nil
	}
}

func cmdGetSquelch(trx TRX) command {
	return func(w *Workspace, c *call) (string, error) {
		sq := w.squelchFor(c, trx)
		return reply(c.name, "%d %f", btoi(sq.on), sq.thresh), nil
	}
}

func cmdCompand(def TRX, sideArg bool) command {
	return func(w *Workspace, c *call) (string, error) {
		fac, err := c.float(0)
		if err != nil {
			return "", err
		}
		trx := def
		if sideArg {
			s, ok, err := c.side(1)
			if err != nil {
				return "", err
			}
			if ok {
				trx = s
			}
		}
		if trx == TX {
			w.tx.cpd.SetFactor(fac)
		} else {
			w.rx[c.k].cpd.SetFactor(fac)
		}
		return "", nil
	}
}

func cmdCompandSt(def TRX, sideArg bool) command {
	return func(w *Workspace, c *call) (string, error) {
		on, err := c.flagOr(0, false)
		if err != nil {
			return "", err
		}
		trx := def
		if sideArg {
			s, ok, err := c.side(1)
			if err != nil {
				return "", err
			}
			if ok {
				trx = s
			}
		}
		if trx == TX {
			w.tx.cpdOn = on
		} else {
			w.rx[c.k].cpdOn = on
		}
		return "", nil
	}
}

func cmdGetCompand(trx TRX) command {
	return func(w *Workspace, c *call) (string, error) {
		if trx == TX {
			return reply(c.name, "%d %f", btoi(w.tx.cpdOn), w.tx.cpd.Factor()), nil
		}
		r := w.rx[c.k]
		return reply(c.name, "%d %f", btoi(r.cpdOn), r.cpd.Factor()), nil
	}
}

func cmdWaveShapeFunc(w *Workspace, c *call) (string, error) {
	n, err := c.int(0)
	if err != nil {
		return "", err
	}
	if n < 2 {
		if err := w.tx.wvs.SetTable(nil); err != nil {
			return "", reject(-1, "%v", err)
		}
		return "", nil
	}
	if err := c.need(n + 1); err != nil {
		return "", err
	}
	tbl, err := c.floats(1, n)
	if err != nil {
		return "", err
	}
	if err := w.tx.wvs.SetTable(tbl); err != nil {
		return "", reject(-1, "%v", err)
	}
	return "", nil
}

func cmdGetWaveShape(w *Workspace, c *call) (string, error) {
	return reply(c.name, "%d %d", btoi(w.tx.wvsOn), w.tx.wvs.Points()), nil
}

func cmdDCBlock(w *Workspace, c *call) (string, error) {
	on, err := c.flagOr(0, true)
	if err != nil {
		return "", err
	}
	w.tx.dcb.Reset()
	w.tx.dcbOn = on
	return "", nil
}

func cmdDCBlockSt(w *Workspace, c *call) (string, error) {
	on, err := c.flagOr(0, false)
	if err != nil {
		return "", err
	}
	w.tx.dcbOn = on
	return "", nil
}

func setCarrierLevel(t *Transmitter, v float64) error {
	if v < 0 || v > 1 {
		return reject(-1, "carrier level %g outside [0,1]", v)
	}
	t.carrier = v
	return nil
}

func cmdTXMeterMode(w *Workspace, c *call) (string, error) {
	v, err := c.int(0)
	if err != nil {
		return "", err
	}
	if err := w.meter.SetTXMode(meter.TXPoint(v)); err != nil {
		return "", reject(-1, "%v", err)
	}
	return "", nil
}

func cmdSpotToneVals(w *Workspace, c *call) (string, error) {
	if err := c.need(4); err != nil {
		return "", err
	}
	v, err := c.floats(0, 4)
	if err != nil {
		return "", err
	}
	gain, freq, rise, fall := v[0], v[1], v[2], v[3]
	if !util.BelowNyquist(freq, w.params.SampleRate) || rise < 0 || fall < 0 {
		return "", reject(-1, "spot tone %g Hz rise %g fall %g", freq, rise, fall)
	}
	w.rx[c.k].spot.SetValues(gain, freq, rise, fall)
	return "", nil
}

func cmdSpotTone(w *Workspace, c *call) (string, error) {
	on, err := c.flag(0)
	if err != nil {
		return "", err
	}
	r := w.rx[c.k]
	if on {
		r.spot.On()
		r.spotOn = true
	} else {
		r.spot.Off()
	}
	return "", nil
}

func cmdGetSpotTone(w *Workspace, c *call) (string, error) {
	r := w.rx[c.k]
	gain, freq, rise, fall := r.spot.Values()
	return reply(c.name, "%d %f %f %f %f", btoi(r.spotOn), gain, freq, rise, fall), nil
}

// --- equalizer

func cmdEQ3(trx TRX) command {
	return func(w *Workspace, c *call) (string, error) {
		if err := c.need(4); err != nil {
			return "", err
		}
		v, err := c.floats(0, 4)
		if err != nil {
			return "", err
		}
		g := w.tx.eq
		if trx == RX {
			g = w.rx[c.k].eq
		}
		if err := g.SetThreeBand(v[0], v[1], v[2], v[3]); err != nil {
			return "", reject(-1, "%v", err)
		}
		return "", nil
	}
}

func cmdEQ10(trx TRX) command {
	return func(w *Workspace, c *call) (string, error) {
		if err := c.need(11); err != nil {
			return "", err
		}
		v, err := c.floats(0, 11)
		if err != nil {
			return "", err
		}
		var gains [10]float64
		copy(gains[:], v[1:])
		g := w.tx.eq
		if trx == RX {
			g = w.rx[c.k].eq
		}
		if err := g.SetTenBand(v[0], gains); err != nil {
			return "", reject(-1, "%v", err)
		}
		return "", nil
	}
}

func cmdEQOn(trx TRX) command {
	return func(w *Workspace, c *call) (string, error) {
		on, err := c.flagOr(0, false)
		if err != nil {
			return "", err
		}
		if trx == TX {
			w.tx.eqOn = on
		} else {
			w.rx[c.k].eqOn = on
		}
		return "", nil
	}
}

func cmdGetEQ(trx TRX) command {
	return func(w *Workspace, c *call) (string, error) {
		g, on := w.tx.eq, w.tx.eqOn
		if trx == RX {
			g, on = w.rx[c.k].eq, w.rx[c.k].eqOn
		}
		pre, gains := g.Gains()
		args := []interface{}{btoi(on), len(gains), pre}
		format := "%d %d %f"
		for _, v := range gains {
			format += " %f"
			args = append(args, v)
		}
		return reply(c.name, format, args...), nil
	}
}

// --- run state, switching and test generator

func cmdRunState(w *Workspace, c *call) (string, error) {
	v, err := c.int(0)
	if err != nil {
		return "", err
	}
	s := RunState(v)
	if s < 0 || s >= numRunStates {
		return "", reject(-1, "run state %d", v)
	}
	if s == RunSwitch {
		return "", reject(-1, "switching is started with setSWCH or setTRX")
	}
	w.state = s
	return "", nil
}

func cmdSwitch(w *Workspace, c *call) (string, error) {
	if err := c.need(4); err != nil {
		return "", err
	}
	trx, _, err := c.side(0)
	if err != nil {
		return "", err
	}
	ms, err := c.floats(1, 3)
	if err != nil {
		return "", err
	}
	for _, v := range ms {
		if v < 0 {
			return "", reject(-1, "envelope segment %g ms", v)
		}
	}
	w.startSwitch(trx, ms[0], ms[1], ms[2])
	return "", nil
}

func cmdTRX(w *Workspace, c *call) (string, error) {
	if err := c.need(1); err != nil {
		return "", err
	}
	trx, _, err := c.side(0)
	if err != nil {
		return "", err
	}
	w.startSwitch(trx, defaultSwitchFallMs, defaultSwitchSteadyMs, defaultSwitchRiseMs)
	return "", nil
}

func cmdTest(w *Workspace, c *call) (string, error) {
	on, err := c.flag(0)
	if err != nil {
		return "", err
	}
	if on {
		w.state = RunTest
	} else if w.state == RunTest {
		w.state = RunPlay
	}
	return "", nil
}

func cmdTestMode(w *Workspace, c *call) (string, error) {
	v, err := c.int(0)
	if err != nil {
		return "", err
	}
	m := TestMode(v)
	if m < TestTone || m > TestNoise {
		return "", reject(-1, "test mode %d", v)
	}
	w.test.mode = m
	return "", nil
}

func cmdTestTone(w *Workspace, c *call) (string, error) {
	if err := c.need(2); err != nil {
		return "", err
	}
	v, err := c.floats(0, 2)
	if err != nil {
		return "", err
	}
	if !util.BelowNyquist(v[0], w.params.SampleRate) {
		return "", reject(-1, "tone %g Hz", v[0])
	}
	setToneLevel(&w.test.tone, v[0], v[1])
	return "", nil
}

func cmdTestTwoTone(w *Workspace, c *call) (string, error) {
	if err := c.need(4); err != nil {
		return "", err
	}
	v, err := c.floats(0, 4)
	if err != nil {
		return "", err
	}
	if !util.BelowNyquist(v[0], w.params.SampleRate) || !util.BelowNyquist(v[2], w.params.SampleRate) {
		return "", reject(-1, "tones %g and %g Hz", v[0], v[2])
	}
	setToneLevel(&w.test.a, v[0], v[1])
	setToneLevel(&w.test.b, v[2], v[3])
	return "", nil
}

func cmdTestNoise(w *Workspace, c *call) (string, error) {
	db, err := c.float(0)
	if err != nil {
		return "", err
	}
	w.test.noiseAmp = util.DBToLinear(db)
	return "", nil
}

func cmdTestThru(w *Workspace, c *call) (string, error) {
	on, err := c.flag(0)
	if err != nil {
		return "", err
	}
	w.test.thru = on
	return "", nil
}

func cmdGetTest(w *Workspace, c *call) (string, error) {
	return reply(c.name, "%d %d %d", btoi(w.state == RunTest), int(w.test.mode), btoi(w.test.thru)), nil
}

// --- spectrum

func cmdSpectrumPolyphase(w *Workspace, c *call) (string, error) {
	on, err := c.flag(0)
	if err != nil {
		return "", err
	}
	if err := w.spec.SetPolyphase(on); err != nil {
		return "", reject(-1, "%v", err)
	}
	return "", nil
}

func cmdSpectrumWindow(w *Workspace, c *call) (string, error) {
	v, err := c.int(0)
	if err != nil {
		return "", err
	}
	if err := w.spec.SetWindow(spectrum.WindowType(v)); err != nil {
		return "", reject(-1, "%v", err)
	}
	return "", nil
}

func cmdSpectrumType(w *Workspace, c *call) (string, error) {
	if len(c.args) > 3 {
		return "", reject(-1, "want at most 3 arguments")
	}
	typ, err := c.intOr(0, int(spectrum.PostFilter))
	if err != nil {
		return "", err
	}
	scale, err := c.intOr(1, int(spectrum.Pwr))
	if err != nil {
		return "", err
	}
	rxk, err := c.intOr(2, w.listen)
	if err != nil {
		return "", err
	}
	if typ < int(spectrum.SemiRaw) || typ > int(spectrum.PostDet) {
		return "", reject(-1, "spectrum type %d", typ)
	}
	if scale != int(spectrum.Mag) && scale != int(spectrum.Pwr) {
		return "", reject(-1, "spectrum scale %d", scale)
	}
	if rxk < 0 || rxk >= MaxRX {
		return "", reject(-1, "receiver %d", rxk)
	}
	w.spec.Type = spectrum.Type(typ)
	w.spec.Scale = spectrum.Scale(scale)
	w.spec.RXK = rxk
	return "", nil
}

func cmdGetSpectrumInfo(w *Workspace, c *call) (string, error) {
	s := w.spec
	return reply(c.name, "%d %d %d %d %d",
		btoi(s.Polyphase()), int(s.Window()), int(s.Type), int(s.Scale), s.RXK), nil
}

// --- workspace and reports

func cmdNewBuflen(w *Workspace, c *call) (string, error) {
	if len(c.args) != 1 {
		return "", reject(-1, "want exactly one argument")
	}
	n, err := c.int(0)
	if err != nil {
		return "", err
	}
	if !util.IsPowerOfTwo(n) || n < minBlockSize {
		return "", reject(-1, "buffer length %d", n)
	}
	if err := w.rebuild(n); err != nil {
		return "", reject(-1, "%v", err)
	}
	return "", nil
}

func cmdFinished(w *Workspace, c *call) (string, error) {
	if w.finished != nil {
		w.finished()
	}
	return "", nil
}

func cmdReqMeter(w *Workspace, c *call) (string, error) {
	label, err := c.intOr(0, 0)
	if err != nil {
		return "", err
	}
	trx, ok, err := c.side(1)
	if err != nil {
		return "", err
	}
	if !ok {
		trx = w.trx
	}
	side := meter.SideRX
	if trx == TX {
		side = meter.SideTX
	}
	w.meter.Snapshot(label, side)
	w.postMeter()
	return "", nil
}

func cmdReqSideMeter(side meter.Side) command {
	return func(w *Workspace, c *call) (string, error) {
		label, err := c.intOr(0, 0)
		if err != nil {
			return "", err
		}
		w.meter.Snapshot(label, side)
		w.postMeter()
		return "", nil
	}
}

func cmdReqSpectrum(scope bool) command {
	return func(w *Workspace, c *call) (string, error) {
		label, err := c.intOr(0, 0)
		if err != nil {
			return "", err
		}
		if scope {
			w.spec.SnapshotScope(label, w.tick)
		} else {
			w.spec.Snapshot(label, w.tick)
		}
		w.postSpectrum()
		return "", nil
	}
}
