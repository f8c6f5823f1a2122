package status

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/nerrad567/bambu-core/internal/protocol"
)

// studioFolder is resolved once per process so projection stays deterministic.
var studioFolder = sync.OnceValue(func() string {
	return bambuStudioFolder(runtime.GOOS, os.Getenv("APPDATA"), currentUsername())
})

// StreamPath returns the local camera stream descriptor for the given camera
// settings, or "" when the camera is off or the platform has no Bambu Studio
// folder.
func StreamPath(cam *protocol.IPCam) string {
	return streamPath(cam, studioFolder())
}

func streamPath(cam *protocol.IPCam, folder string) string {
	if cam == nil || cam.Dev.String() == "0" || cam.Record == "disable" {
		return ""
	}
	if folder == "" {
		return ""
	}
	return filepath.Join(folder, "cameratools", "ffmpeg.sdp")
}

func bambuStudioFolder(goos, appData, username string) string {
	switch goos {
	case "windows":
		if appData == "" {
			return ""
		}
		return filepath.Join(appData, "BambuStudio")
	case "darwin":
		if username == "" {
			return ""
		}
		return filepath.Join("/Users", username, "Library", "Application Support", "BambuStudio")
	default:
		return ""
	}
}

func currentUsername() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}
