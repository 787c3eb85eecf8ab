package main

import (
	"github.com/Frogwarg/video-chat/cmd"
	"github.com/Frogwarg/video-chat/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
