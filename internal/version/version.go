package version

// Version is the current version of the video-chat tool.
// Override at build time with:
//
//	go build -ldflags="-X 'github.com/Frogwarg/video-chat/internal/version.Version=v1.0.0'"
var Version = "dev"
