//go:build !portaudio

package main

const portaudioHint = ""
