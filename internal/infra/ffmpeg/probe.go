package ffmpeg

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// probeOutput is the subset of `ffprobe -of json -show_format -show_streams`
// the decoder reads.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// parseDuration prefers the container duration and falls back to the first
// video stream that reports one.
func parseDuration(raw string) (float64, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe JSON output: %w", err)
	}

	hasVideo := false
	for _, s := range out.Streams {
		if s.CodecType == "video" {
			hasVideo = true
			break
		}
	}
	if !hasVideo {
		return 0, fmt.Errorf("no video stream found")
	}

	candidates := []string{out.Format.Duration}
	for _, s := range out.Streams {
		if s.CodecType == "video" {
			candidates = append(candidates, s.Duration)
		}
	}

	for _, c := range candidates {
		if c == "" || c == "N/A" {
			continue
		}
		d, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse duration '%s': %w", c, err)
		}
		return d, nil
	}
	return 0, fmt.Errorf("duration not available in probe metadata")
}
