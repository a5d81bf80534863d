package change_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/byte4ever/manifest_submit/gitops/change"
)

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		left  string
		right string
		want  int
	}{
		{left: "1.2.3", right: "1.2.3", want: 0},
		{left: "1.2.10", right: "1.2.9", want: 1},
		{left: "1.0", right: "1.0.1", want: -1},
		{left: "1.0.0", right: "1.0", want: 1},
		{left: "1.0beta", right: "1.0", want: -1},
		{left: "1.0alpha", right: "1.0beta", want: -1},
		{left: "v2", right: "1", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.left+"_"+tt.right, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, change.CompareVersions(tt.left, tt.right))
		})
	}
}

func TestHighestVersion(t *testing.T) {
	t.Parallel()

	assert.Empty(t, change.HighestVersion(nil))
	assert.Equal(
		t,
		"10.0",
		change.HighestVersion([]string{"9.9.9", "10.0", "2.0", "10.0rc1"}),
	)
}

func TestStateOf(t *testing.T) {
	t.Parallel()

	published := []string{"1.0.0", "2.0.0"}

	tests := []struct {
		name      string
		version   string
		published []string
		exists    bool
		want      change.UpdateState
	}{
		{name: "absent package", version: "1.0.0", want: change.NewPackage},
		{
			name:    "empty package dir",
			version: "1.0.0",
			exists:  true,
			want:    change.NewPackage,
		},
		{
			name:      "published",
			version:   "2.0.0",
			published: published,
			exists:    true,
			want:      change.UpdateVersion,
		},
		{
			name:      "newest",
			version:   "3.0.0",
			published: published,
			exists:    true,
			want:      change.NewVersion,
		},
		{
			name:      "older",
			version:   "1.5.0",
			published: published,
			exists:    true,
			want:      change.AddVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := change.StateOf(tt.version, tt.published, tt.exists)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpdateState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "New version", change.NewVersion.String())
	assert.Equal(t, "Update", change.UpdateState(42).String())
}
