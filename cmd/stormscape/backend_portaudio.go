//go:build portaudio

package main

import (
	_ "github.com/mtclare/Storm-Machine/sink/portaudio"
)

const portaudioHint = ", portaudio"
