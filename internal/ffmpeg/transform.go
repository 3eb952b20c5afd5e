// SPDX-License-Identifier: MIT

package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/geek-md/media-downloader/internal/log"
)

// TransformError reports a failed transform invocation. It carries the tail
// of the tool's stderr for diagnostics.
type TransformError struct {
	Op     string
	Stderr string
	Err    error
}

func (e *TransformError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("transform %s: %v: %s", e.Op, e.Err, e.Stderr)
	}
	return fmt.Sprintf("transform %s: %v", e.Op, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Op describes a single ffmpeg invocation: an input path, an argument set
// and an output path. Callers are responsible for atomically replacing the
// input with the output on success.
type Op struct {
	Name   string
	Input  string
	Output string
	// Args are the codec/filter arguments inserted between input and output.
	Args []string
}

// NormalizeAspect re-encodes the video forcing square pixels and a display
// aspect ratio matching the real frame size. Audio is stream-copied.
func NormalizeAspect(input, output string, d Dimensions) Op {
	return Op{
		Name:   "normalize_aspect",
		Input:  input,
		Output: output,
		Args: []string{
			"-vf", fmt.Sprintf("setsar=1,setdar=%d/%d", d.Width, d.Height),
			"-c:v", "libx264", "-preset", "veryfast",
			"-crf", "18", "-c:a", "copy",
		},
	}
}

// ScaleExact re-encodes the video to exactly width x height, forcing square
// pixel aspect and a derived display aspect ratio to prevent distorted
// playback.
func ScaleExact(input, output string, d Dimensions) Op {
	return Op{
		Name:   "scale_exact",
		Input:  input,
		Output: output,
		Args: []string{
			"-vf", fmt.Sprintf("scale=%d:%d,setsar=1,setdar=%d/%d", d.Width, d.Height, d.Width, d.Height),
			"-c:a", "copy",
			"-movflags", "+faststart",
		},
	}
}

// ExtractFrame writes the first frame of the input as a standalone image.
func ExtractFrame(input, output string) Op {
	return Op{
		Name:   "extract_frame",
		Input:  input,
		Output: output,
		Args: []string{
			"-vf", `select=eq(n\,0)`,
			"-vframes", "1",
		},
	}
}

// AttachImage remuxes the input stream-copying all streams and attaching
// image as an embedded preview picture, replacing any prior attached image.
func AttachImage(input, image, output string) Op {
	return Op{
		Name:   "attach_image",
		Input:  input,
		Output: output,
		Args: []string{
			"-i", image,
			"-map", "0", "-map", "1",
			"-map", "-0:v:m:attached_pic",
			"-c", "copy",
			"-disposition:v:1", "attached_pic",
			"-movflags", "+faststart",
		},
	}
}

// Remux rewrites the container without re-encoding any stream. Fast path for
// container-level fixups.
func Remux(input, output string) Op {
	return Op{
		Name:   "remux",
		Input:  input,
		Output: output,
		Args:   []string{"-c", "copy"},
	}
}

// Runner executes transform operations against the external ffmpeg binary.
type Runner struct {
	Bin     string
	Timeout time.Duration
}

// NewRunner returns a Runner for bin with the given per-operation timeout.
func NewRunner(bin string, timeout time.Duration) *Runner {
	if bin == "" {
		bin = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Runner{Bin: bin, Timeout: timeout}
}

// Run executes the operation. It succeeds only if the tool exits cleanly and
// the output file exists. The half-written output is removed on failure.
func (r *Runner) Run(ctx context.Context, op Op) error {
	logger := log.WithComponentFromContext(ctx, "ffmpeg")

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	args := append([]string{"-y", "-i", op.Input}, op.Args...)
	args = append(args, op.Output)

	cmd := exec.CommandContext(ctx, r.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		_ = os.Remove(op.Output)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = ctx.Err()
		}
		return &TransformError{Op: op.Name, Stderr: stderrTail(stderr.String()), Err: err}
	}

	if _, statErr := os.Stat(op.Output); statErr != nil {
		return &TransformError{Op: op.Name, Stderr: stderrTail(stderr.String()), Err: fmt.Errorf("no output produced: %w", statErr)}
	}

	logger.Debug().
		Str(log.FieldEvent, "transform.done").
		Str("op", op.Name).
		Str(log.FieldPath, op.Input).
		Dur("duration", time.Since(start)).
		Msg("transform completed")
	return nil
}

const maxStderrTail = 512

// stderrTail keeps error payloads bounded; ffmpeg is chatty.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxStderrTail {
		return s
	}
	return s[len(s)-maxStderrTail:]
}
