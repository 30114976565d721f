package system

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// MediaInfo is what ffprobe reports about the first video stream.
type MediaInfo struct {
	Width    int
	Height   int
	Duration float64 // seconds
	Rotation int     // display rotation in degrees
}

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		Duration     string `json:"duration"`
		SideDataList []struct {
			Rotation int `json:"rotation"`
		} `json:"side_data_list"`
		Tags map[string]string `json:"tags"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeMedia runs ffprobe on path.
func ProbeMedia(ctx context.Context, path string) (MediaInfo, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,duration:stream_tags=rotate:stream_side_data=rotation:format=duration",
		"-of", "json", path)
	out, err := cmd.Output()
	if err != nil {
		return MediaInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (MediaInfo, error) {
	var p probeOutput
	if err := json.Unmarshal(out, &p); err != nil {
		return MediaInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(p.Streams) == 0 {
		return MediaInfo{}, fmt.Errorf("no video stream")
	}

	s := p.Streams[0]
	info := MediaInfo{Width: s.Width, Height: s.Height}
	for _, raw := range []string{s.Duration, p.Format.Duration} {
		if d, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && d > 0 {
			info.Duration = d
			break
		}
	}
	if len(s.SideDataList) > 0 && s.SideDataList[0].Rotation != 0 {
		info.Rotation = s.SideDataList[0].Rotation
	} else if r, err := strconv.Atoi(s.Tags["rotate"]); err == nil {
		info.Rotation = r
	}
	return info, nil
}

// BestH264Encoder returns the first hardware H.264 encoder ffmpeg offers,
// falling back to libx264.
func BestH264Encoder(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(list string) string {
	// VideoToolbox on macOS, NVENC on NVIDIA
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(list, name) {
			return name
		}
	}
	return "libx264"
}
