// Command stormscape plays a layered storm soundscape controlled from the
// terminal.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/debug"

	"github.com/gdamore/tcell/v2"

	"github.com/mtclare/Storm-Machine/asset"
	"github.com/mtclare/Storm-Machine/audio"
	"github.com/mtclare/Storm-Machine/service"
	"github.com/mtclare/Storm-Machine/sink"
)

var (
	configFlag  = flag.String("config", "", "YAML config file")
	assetsFlag  = flag.String("assets", "", "YAML asset manifest (overrides config assets)")
	backendFlag = flag.String("backend", "", "Audio backend: auto, speaker, pipe, offline"+portaudioHint)
	debugFlag   = flag.Bool("debug", false, "Write logs to logs/stormscape.log")
	muteFlag    = flag.Bool("mute", false, "Run without audio")
)

func main() {
	flag.Parse()

	logFile := setupLogging(*debugFlag)
	if logFile != nil {
		defer logFile.Close()
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	hub := service.NewHub()
	audioSvc := audio.NewService(cfg, audio.WithLogger(log.Default()))
	ui := &uiService{}
	hub.Register(audioSvc)
	hub.Register(ui)

	if err := hub.InitAll(*muteFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := hub.StartAll(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	// Panic Recovery: Ensure terminal is reset even if the UI crashes
	defer func() {
		if r := recover(); r != nil {
			hub.StopAll()
			fmt.Fprintf(os.Stderr, "\n\x1b[31mSTORMSCAPE CRASHED: %v\x1b[0m\n", r)
			fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
			os.Exit(1)
		}
	}()

	var (
		engine  soundscape
		flashes <-chan audio.Flash
	)
	if e := audioSvc.Engine(); e != nil {
		engine = e
		flashes = audioSvc.Scheduler().Flashes()
	} else {
		log.Printf("[main] audio disabled")
	}

	NewStorm(ui.screen, engine, flashes).run()
	hub.StopAll()
}

// loadConfig layers defaults, the config file, env and flags
func loadConfig() (*audio.Config, error) {
	cfg := audio.DefaultConfig()
	if *configFlag != "" {
		loaded, err := audio.LoadConfig(*configFlag)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	if *backendFlag != "" {
		if _, err := sink.New(*backendFlag); err != nil && *backendFlag != "auto" {
			return nil, fmt.Errorf("backend: %w (available: %v)", err, sink.Names())
		}
		cfg.Backend = *backendFlag
	}

	if *assetsFlag != "" {
		m, err := asset.LoadManifest(*assetsFlag)
		if err != nil {
			return nil, fmt.Errorf("assets: %w", err)
		}
		cfg.Assets = m.Names()
	}
	return cfg, cfg.Validate()
}

// uiService owns the terminal screen
type uiService struct {
	screen tcell.Screen
}

func (u *uiService) Name() string           { return "ui" }
func (u *uiService) Dependencies() []string { return []string{"audio"} }

func (u *uiService) Init(args ...any) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	u.screen = screen
	return nil
}

func (u *uiService) Start() error { return nil }

func (u *uiService) Stop() error {
	if u.screen != nil {
		u.screen.Fini()
		u.screen = nil
	}
	return nil
}
