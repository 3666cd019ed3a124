package synth

import (
	"math"
	"time"

	"github.com/mtclare/Storm-Machine/constant"
)

// clampUnit restricts an intensity to [0, 1]
func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// scaleDuration returns d*f rounded to the nanosecond
func scaleDuration(d time.Duration, f float64) time.Duration {
	return time.Duration(math.Round(float64(d) * f))
}

// --- Looping fallbacks (intensity independent) ---

// WindFallback renders a 2s loop: noise at 0.3 plus a 60Hz sine at 0.2
func WindFallback(rng Rand, rate int) Buffer {
	noise := WhiteNoise(rng, rate, constant.FallbackLoopDuration).Scale(constant.WindNoiseGain)
	tone := Oscillator(WaveSine, constant.WindToneFreq, len(noise), rate)
	return noise.Mix(tone, constant.WindToneGain)
}

// RainFallback renders a 2s loop: noise at 0.4 modulated by 0.5+0.5*sin(2*pi*800*t)
func RainFallback(rng Rand, rate int) Buffer {
	buf := WhiteNoise(rng, rate, constant.FallbackLoopDuration).Scale(constant.RainNoiseGain)
	for i := range buf {
		t := float64(i) / float64(rate)
		buf[i] *= 0.5 + 0.5*math.Sin(2*math.Pi*constant.RainModFreq*t)
	}
	return buf
}

// --- Procedural loops (shaped by the intensity at start) ---

// ProceduralWind renders a filtered sawtooth drone with high-passed noise on top
func ProceduralWind(rng Rand, rate int, intensity float64) Buffer {
	intensity = clampUnit(intensity)
	n := Samples(constant.FallbackLoopDuration, rate)

	saw := Oscillator(WaveSaw, constant.ProcWindSawBase+intensity*constant.ProcWindSawSpan, n, rate)
	NewBiquad(LowPass, constant.ProcWindLowpassBase+intensity*constant.ProcWindLowpassSpan, 1, rate).Apply(saw)

	noise := WhiteNoise(rng, rate, constant.FallbackLoopDuration)
	NewBiquad(HighPass, constant.ProcWindHighpassBase+intensity*constant.ProcWindHighpassSpan, 0, rate).Apply(noise)

	return saw.Mix(noise, intensity*constant.ProcWindNoiseGain)
}

// ProceduralRain renders noise through a band-pass and a high-pass stage
func ProceduralRain(rng Rand, rate int, intensity float64) Buffer {
	intensity = clampUnit(intensity)
	buf := WhiteNoise(rng, rate, constant.FallbackLoopDuration)
	NewBiquad(BandPass, constant.ProcRainBandBase+intensity*constant.ProcRainBandSpan, constant.ProcRainBandQ, rate).Apply(buf)
	NewBiquad(HighPass, constant.ProcRainHighpassBase+intensity*constant.ProcRainHighpassSpan, 0, rate).Apply(buf)
	return buf
}

// --- One-shots ---

// ThunderDecay is the exponential decay length for an intensity
func ThunderDecay(intensity float64) time.Duration {
	return constant.ThunderDecayBase + scaleDuration(constant.ThunderDecaySpan, clampUnit(intensity))
}

// ThunderEnvelope is attack to intensity*0.6, decay to 0.1, release to near zero
func ThunderEnvelope(intensity float64) Envelope {
	intensity = clampUnit(intensity)
	return Envelope{
		Start: 0,
		Segments: []Segment{
			{Ramp: RampLinear, Target: intensity * constant.ThunderPeakScale, Duration: constant.ThunderAttack},
			{Ramp: RampExponential, Target: constant.ThunderSustainLevel, Duration: ThunderDecay(intensity)},
			{Ramp: RampExponential, Target: constant.ThunderReleaseFloor, Duration: constant.ThunderRelease},
		},
	}
}

// Thunder renders a 30Hz sawtooth through a 100Hz low-pass under ThunderEnvelope
func Thunder(rate int, intensity float64) Buffer {
	env := ThunderEnvelope(intensity)
	buf := Oscillator(WaveSaw, constant.ThunderSawFreq, Samples(env.Duration(), rate), rate)
	NewBiquad(LowPass, constant.ThunderLowpassFreq, constant.ThunderLowpassQ, rate).Apply(buf)
	env.Apply(buf, rate)
	return buf
}

// LightningDuration is the total one-shot length for an intensity
func LightningDuration(intensity float64) time.Duration {
	return constant.LightningDurationBase + scaleDuration(constant.LightningDurationSpan, clampUnit(intensity))
}

// LightningCutoff is the high-pass corner for an intensity
func LightningCutoff(intensity float64) float64 {
	return constant.LightningHighpassBase + clampUnit(intensity)*constant.LightningHighpassSpan
}

// LightningEnvelope is a 1ms attack to intensity*0.3 then exponential decay to near zero
func LightningEnvelope(intensity float64) Envelope {
	intensity = clampUnit(intensity)
	return Envelope{
		Start: 0,
		Segments: []Segment{
			{Ramp: RampLinear, Target: intensity * constant.LightningPeakScale, Duration: constant.LightningAttack},
			{Ramp: RampExponential, Target: constant.LightningDecayFloor, Duration: LightningDuration(intensity) - constant.LightningAttack},
		},
	}
}

// Lightning renders high-passed white noise under LightningEnvelope
func Lightning(rng Rand, rate int, intensity float64) Buffer {
	env := LightningEnvelope(intensity)
	buf := WhiteNoise(rng, rate, env.Duration())
	NewBiquad(HighPass, LightningCutoff(intensity), constant.LightningHighpassQ, rate).Apply(buf)
	env.Apply(buf, rate)
	return buf
}
