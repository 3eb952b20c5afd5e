// SPDX-License-Identifier: MIT

package jobs

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/geek-md/media-downloader/internal/fsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDestinationPlacesFileUnderBase(t *testing.T) {
	base := t.TempDir()

	d, err := resolveDestination(base, "clips", "video.mp4")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "clips", "video.mp4"), d.final)
	assert.Equal(t, d.final+tempSuffix, d.tmp)
	assert.DirExists(t, filepath.Join(base, "clips"))
}

func TestResolveDestinationDotNamesFallBack(t *testing.T) {
	base := t.TempDir()

	for _, name := range []string{".", "..", " . "} {
		d, err := resolveDestination(base, "", name)
		require.NoError(t, err, "name %q", name)

		assert.Equal(t, fsutil.FallbackName, filepath.Base(d.final), "name %q", name)
		assert.True(t, strings.HasPrefix(d.final, base+string(filepath.Separator)),
			"final %q must be strictly below the root for name %q", d.final, name)
		assert.True(t, strings.HasPrefix(d.tmp, base+string(filepath.Separator)),
			"temp %q must be strictly below the root for name %q", d.tmp, name)
	}
}

func TestSetNameDotNameKeepsTempConfined(t *testing.T) {
	base := t.TempDir()

	d, err := resolveDestination(base, "", "initial.bin")
	require.NoError(t, err)

	// A remote header can rename the destination mid-job. A name collapsing
	// to the directory itself must never turn the temp path into a sibling
	// of the root.
	require.NoError(t, d.setName("."))
	assert.NotEqual(t, base, d.final)
	assert.NotEqual(t, base+tempSuffix, d.tmp)
	assert.Equal(t, fsutil.FallbackName, filepath.Base(d.final))
}
