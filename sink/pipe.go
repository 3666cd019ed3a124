package sink

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"

	"github.com/mtclare/Storm-Machine/constant"
)

// Pipe streams s16le stereo into a CLI player (pacat, aplay, ...) or OSS device
type Pipe struct {
	backend *BackendConfig
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	ossFile *os.File // For direct OSS writes

	// output is set by Open, or directly by tests to skip backend detection
	output io.Writer

	mu     sync.Mutex // Render lock
	root   beep.Streamer
	format beep.Format

	running  atomic.Bool
	stopChan chan struct{}
	errChan  chan error
	wg       sync.WaitGroup
}

// NewPipe creates a pipe sink; the backend is detected on Open
func NewPipe() *Pipe {
	return &Pipe{
		errChan: make(chan error, 1),
	}
}

func (p *Pipe) Name() string {
	if p.backend != nil {
		return "pipe:" + p.backend.Name
	}
	return "pipe"
}

// Backend returns the detected backend, nil before Open
func (p *Pipe) Backend() *BackendConfig {
	return p.backend
}

func (p *Pipe) Open(format beep.Format, root beep.Streamer) error {
	if p.running.Load() {
		return ErrAlreadyOpen
	}

	if p.output == nil {
		backend, err := DetectBackend(int(format.SampleRate))
		if err != nil {
			return err
		}
		if err := p.launch(backend); err != nil {
			return err
		}
	}

	p.format = format
	p.root = root
	p.stopChan = make(chan struct{})
	p.running.Store(true)

	p.wg.Add(1)
	go p.loop(p.stopChan)
	return nil
}

// launch starts the backend process or opens the OSS device
func (p *Pipe) launch(backend *BackendConfig) error {
	p.backend = backend

	if backend.Type == BackendOSS {
		f, err := os.OpenFile(backend.Path, os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNoAudioBackend, err)
		}
		p.ossFile = f
		p.output = f
		return nil
	}

	cmd := exec.Command(backend.Path, backend.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoAudioBackend, err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return fmt.Errorf("%w: %v", ErrNoAudioBackend, err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.output = stdin

	// Monitor process
	p.wg.Add(1)
	go p.monitorProcess()
	return nil
}

// monitorProcess watches for subprocess exit
func (p *Pipe) monitorProcess() {
	defer p.wg.Done()

	err := p.cmd.Wait()
	if p.running.Load() {
		p.report(fmt.Errorf("%w: %s exited: %v", ErrPipeClosed, p.backend.Name, err))
	}
}

// report delivers the first error; later ones are dropped
func (p *Pipe) report(err error) {
	select {
	case p.errChan <- err:
	default:
	}
}

func (p *Pipe) Lock()   { p.mu.Lock() }
func (p *Pipe) Unlock() { p.mu.Unlock() }

// Errors returns channel for pipe errors
func (p *Pipe) Errors() <-chan error {
	return p.errChan
}

func (p *Pipe) Close() error {
	if !p.running.CompareAndSwap(true, false) {
		return nil
	}
	close(p.stopChan)

	if p.stdin != nil {
		p.stdin.Close()
	}
	if p.ossFile != nil {
		p.ossFile.Close()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}

	p.wg.Wait()

	// A launched backend is gone; the next Open detects a fresh one
	if p.stdin != nil || p.ossFile != nil {
		p.output = nil
	}
	p.cmd = nil
	p.stdin = nil
	p.ossFile = nil
	return nil
}

// loop renders one buffer per tick and writes it to the backend
func (p *Pipe) loop(stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(constant.AudioBufferDuration)
	defer ticker.Stop()

	frames := p.format.SampleRate.N(constant.AudioBufferDuration)
	mixBuf := make([][2]float64, frames)
	outBytes := make([]byte, frames*constant.AudioBytesPerFrame)

	for {
		select {
		case <-stop:
			return

		case <-ticker.C:
			p.render(mixBuf)
			floatToBytes(mixBuf, outBytes)

			if _, err := p.output.Write(outBytes); err != nil {
				p.report(fmt.Errorf("%w: %v", ErrPipeClosed, err))
				return
			}
		}
	}
}

// render fills buf from the root, padding with silence if it drains
func (p *Pipe) render(buf [][2]float64) {
	for i := range buf {
		buf[i] = [2]float64{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	filled := 0
	for filled < len(buf) {
		n, ok := p.root.Stream(buf[filled:])
		filled += n
		if !ok {
			return
		}
	}
}

// floatToBytes converts stereo float frames to interleaved int16 LE bytes
// Applies soft limiting before hard clip
func floatToBytes(in [][2]float64, out []byte) {
	for i, frame := range in {
		for ch, v := range frame {
			// Soft limiter (tanh-style)
			if v > 0.8 {
				v = 0.8 + 0.2*(1.0-1.0/(1.0+(v-0.8)*5.0))
			} else if v < -0.8 {
				v = -0.8 - 0.2*(1.0-1.0/(1.0+(-v-0.8)*5.0))
			}

			// Hard clip
			if v > 1.0 {
				v = 1.0
			} else if v < -1.0 {
				v = -1.0
			}

			idx := i*constant.AudioBytesPerFrame + ch*2
			binary.LittleEndian.PutUint16(out[idx:], uint16(int16(v*32767)))
		}
	}
}
