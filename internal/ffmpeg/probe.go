// SPDX-License-Identifier: MIT

// Package ffmpeg wraps the external ffprobe and ffmpeg binaries behind a
// narrow adapter so pipeline control flow can be tested without the tools
// being installed. Every invocation carries a bounded timeout; a hung
// subprocess fails the operation, never the process.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/geek-md/media-downloader/internal/log"
)

// Dimensions holds the pixel size of the primary video stream.
type Dimensions struct {
	Width  int
	Height int
}

// Prober resolves video dimensions via ffprobe with an ffmpeg free-text
// fallback.
type Prober struct {
	FFprobeBin string
	FFmpegBin  string
	Timeout    time.Duration
}

// NewProber returns a Prober using the given binaries. Empty binary names
// fall back to PATH lookup of "ffprobe"/"ffmpeg".
func NewProber(ffprobeBin, ffmpegBin string, timeout time.Duration) *Prober {
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Prober{FFprobeBin: ffprobeBin, FFmpegBin: ffmpegBin, Timeout: timeout}
}

// Probe returns the dimensions of the first video stream in path. The
// boolean is false when dimensions cannot be determined; the caller decides
// whether that blocks a step. Probe never returns an error.
func (p *Prober) Probe(ctx context.Context, path string) (Dimensions, bool) {
	logger := log.WithComponentFromContext(ctx, "ffprobe")

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.FFprobeBin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err == nil {
		if d, ok := ParseProbeJSON(out); ok {
			return d, true
		}
	} else {
		logger.Warn().Err(err).Str(log.FieldPath, path).Msg("ffprobe failed, trying ffmpeg fallback")
	}

	return p.fallback(ctx, path)
}

// fallback parses a "WxH" pattern out of the stderr banner of "ffmpeg -i".
// ffmpeg exits non-zero without an output file, so the exit code is ignored.
func (p *Prober) fallback(ctx context.Context, path string) (Dimensions, bool) {
	cmd := exec.CommandContext(ctx, p.FFmpegBin, "-hide_banner", "-i", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	_ = cmd.Run()

	return ParseDimensionsText(stderr.String())
}

// probe JSON wire types

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ParseProbeJSON converts raw ffprobe JSON output into Dimensions.
// Exported for testing without a real ffprobe binary.
func ParseProbeJSON(data []byte) (Dimensions, bool) {
	var raw probeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return Dimensions{}, false
	}
	if len(raw.Streams) == 0 {
		return Dimensions{}, false
	}
	d := Dimensions{Width: raw.Streams[0].Width, Height: raw.Streams[0].Height}
	if d.Width <= 0 || d.Height <= 0 {
		return Dimensions{}, false
	}
	return d, true
}

var dimensionsRe = regexp.MustCompile(`,\s*(\d{2,5})x(\d{2,5})`)

// ParseDimensionsText extracts a ", WxH" pattern from free-text tool output,
// the shape ffmpeg prints in its stream info banner.
func ParseDimensionsText(s string) (Dimensions, bool) {
	m := dimensionsRe.FindStringSubmatch(s)
	if m == nil {
		return Dimensions{}, false
	}
	w := parseInt(m[1])
	h := parseInt(m[2])
	if w <= 0 || h <= 0 {
		return Dimensions{}, false
	}
	return Dimensions{Width: w, Height: h}, true
}

// parseInt mirrors ffprobe's habit of returning numbers as strings.
func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
