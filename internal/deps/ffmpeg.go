package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckFFmpegForWhisper reports the FFmpeg binary the whisper CLI decodes
// audio with.
//
// whisper shells out to "ffmpeg" through PATH. When whisper lives in a
// virtualenv the environment's bin directory usually comes first, so an
// ffmpeg sitting next to the whisper executable wins over the system one.
func CheckFFmpegForWhisper(whisperCommand string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Used by whisper to decode audio",
	}

	if whisperBinary := strings.TrimSpace(whisperCommand); whisperBinary != "" {
		if resolved, err := exec.LookPath(whisperBinary); err == nil {
			candidate := siblingBinary(resolved, "ffmpeg")
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				result.Command = candidate
				result.Available = true
				return result
			}
		}
	}

	const ffmpegName = "ffmpeg"
	if ffmpegPath, err := exec.LookPath(ffmpegName); err == nil {
		result.Command = ffmpegPath
		result.Available = true
		return result
	}

	result.Command = ffmpegName
	result.Detail = fmt.Sprintf("binary %q not found", ffmpegName)
	return result
}

func siblingBinary(path, name string) string {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(path), name)
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
