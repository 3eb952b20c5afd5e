// SPDX-License-Identifier: MIT

package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbeJSON(t *testing.T) {
	tests := []struct {
		name   string
		json   string
		want   Dimensions
		wantOK bool
	}{
		{
			name:   "valid stream",
			json:   `{"streams":[{"width":1920,"height":1080}]}`,
			want:   Dimensions{Width: 1920, Height: 1080},
			wantOK: true,
		},
		{
			name:   "no streams",
			json:   `{"streams":[]}`,
			wantOK: false,
		},
		{
			name:   "zero dimensions",
			json:   `{"streams":[{"width":0,"height":0}]}`,
			wantOK: false,
		},
		{
			name:   "missing fields",
			json:   `{"streams":[{}]}`,
			wantOK: false,
		},
		{
			name:   "garbage input",
			json:   `not json`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseProbeJSON([]byte(tt.json))
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseDimensionsText(t *testing.T) {
	banner := `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'clip.mp4':
  Duration: 00:00:12.40, start: 0.000000, bitrate: 1205 kb/s
  Stream #0:0(und): Video: h264 (High), yuv420p, 1280x720 [SAR 1:1 DAR 16:9], 1071 kb/s, 30 fps`

	d, ok := ParseDimensionsText(banner)
	require.True(t, ok)
	assert.Equal(t, Dimensions{Width: 1280, Height: 720}, d)

	_, ok = ParseDimensionsText("no dimensions here")
	assert.False(t, ok)

	// Single-digit sizes are noise, not video dimensions.
	_, ok = ParseDimensionsText(", 1x1")
	assert.False(t, ok)
}

func TestOpBuilders(t *testing.T) {
	d := Dimensions{Width: 640, Height: 360}

	norm := NormalizeAspect("in.mp4", "out.mp4", d)
	assert.Contains(t, norm.Args, "setsar=1,setdar=640/360")
	assert.Contains(t, norm.Args, "libx264")

	scale := ScaleExact("in.mp4", "out.mp4", d)
	assert.Contains(t, scale.Args, "scale=640:360,setsar=1,setdar=640/360")
	assert.Contains(t, scale.Args, "+faststart")

	frame := ExtractFrame("in.mp4", "thumb.jpg")
	assert.Contains(t, frame.Args, `select=eq(n\,0)`)

	attach := AttachImage("in.mp4", "thumb.jpg", "out.mp4")
	assert.Contains(t, attach.Args, "attached_pic")
	assert.Contains(t, attach.Args, "thumb.jpg")

	remux := Remux("in.mp4", "out.mp4")
	assert.Equal(t, []string{"-c", "copy"}, remux.Args)
}
