// Package main is the entry point for the VoiceDesk voice assistant backend.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	voicedesk "github.com/kart-io/voicedesk/internal/voicedesk"
)

func main() {
	voicedesk.NewApp().Run()
}
