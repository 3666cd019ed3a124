package constant

import "time"

// Audio Hardware Settings
const (
	AudioSampleRate    = 44100
	AudioChannels      = 2
	AudioBitDepth      = 16
	AudioBytesPerFrame = AudioChannels * (AudioBitDepth / 8) // 4 bytes
	AudioPrecision     = AudioBitDepth / 8
)

// Audio Engine Timing
const (
	// AudioBufferDuration determines pipe sink latency and render tick rate
	AudioBufferDuration = 50 * time.Millisecond

	// AudioBufferSamples is frames per pipe render tick at 44.1kHz
	AudioBufferSamples = (AudioSampleRate * 50) / 1000 // 2205

	// SpeakerBufferDuration is the beep speaker buffer
	SpeakerBufferDuration = 100 * time.Millisecond

	// PortAudioFramesPerBuffer is the callback size for the portaudio sink
	PortAudioFramesPerBuffer = 1024
)

// Mix Gains
const (
	// LoopGainScale maps looping layer intensity to layer gain
	LoopGainScale = 0.7

	// SampleShotGainScale maps event intensity to a sample one-shot gain
	SampleShotGainScale = 0.8

	// DefaultMasterVolume is the master gain before any user change
	DefaultMasterVolume = 0.7
)

// Event Gating
const (
	// EventIntensityFloor suppresses rolls at or below this intensity
	EventIntensityFloor = 0.1

	ThunderRollProbability   = 0.3
	LightningRollProbability = 0.4

	ThunderCooldown   = 500 * time.Millisecond
	LightningCooldown = 300 * time.Millisecond

	ThunderRollInterval   = 2000 * time.Millisecond
	LightningRollInterval = 1500 * time.Millisecond

	ThunderFlashDuration   = 300 * time.Millisecond
	LightningFlashDuration = 150 * time.Millisecond
)

// Synthesized Loop Fallbacks
const (
	FallbackLoopDuration = 2 * time.Second

	WindNoiseGain        = 0.3
	WindToneFreq         = 60.0 // Hz
	WindToneGain         = 0.2
	RainNoiseGain        = 0.4
	RainModFreq          = 800.0 // Hz
	OneShotNoiseDuration = 500 * time.Millisecond
)

// Procedural Loop Synthesis
const (
	ProcWindSawBase      = 60.0
	ProcWindSawSpan      = 40.0
	ProcWindLowpassBase  = 200.0
	ProcWindLowpassSpan  = 300.0
	ProcWindHighpassBase = 100.0
	ProcWindHighpassSpan = 200.0
	ProcWindNoiseGain    = 0.2
	ProcRainBandBase     = 800.0
	ProcRainBandSpan     = 1200.0
	ProcRainBandQ        = 0.5
	ProcRainHighpassBase = 400.0
	ProcRainHighpassSpan = 600.0
)

// Thunder One-Shot
const (
	ThunderSawFreq      = 30.0  // Hz
	ThunderLowpassFreq  = 100.0 // Hz
	ThunderLowpassQ     = 1.0
	ThunderPeakScale    = 0.6
	ThunderAttack       = 10 * time.Millisecond
	ThunderDecayBase    = 800 * time.Millisecond
	ThunderDecaySpan    = 1200 * time.Millisecond
	ThunderSustainLevel = 0.1
	ThunderRelease      = 1500 * time.Millisecond
	ThunderReleaseFloor = 0.001
)

// Lightning One-Shot
const (
	LightningHighpassBase = 2000.0 // Hz
	LightningHighpassSpan = 3000.0 // Hz
	LightningHighpassQ    = 10.0
	LightningPeakScale    = 0.3
	LightningAttack       = 1 * time.Millisecond
	LightningDurationBase = 50 * time.Millisecond
	LightningDurationSpan = 100 * time.Millisecond
	LightningDecayFloor   = 0.001
)

// Frequency Analyser
const (
	// AnalyserWindowSize matches a 256-point FFT
	AnalyserWindowSize = 256
	AnalyserBinCount   = AnalyserWindowSize / 2

	AnalyserMinDecibels = -100.0
	AnalyserMaxDecibels = -30.0
)

// Asset Loading
const (
	DefaultLoaderWorkers = 4
	AssetFetchTimeout    = 15 * time.Second
	ResampleQuality      = 4
)
