package manifest_test

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/manifest_submit/manifest"
)

const versionManifest = `PackageIdentifier: Vendor.App
PackageVersion: 1.2.3
DefaultLocale: en-US
ManifestType: version
ManifestVersion: 1.6.0
`

const installerManifest = `# installer
PackageIdentifier: Vendor.App
PackageVersion: 1.2.3
Installers:
  - Architecture: x64
    InstallerUrl: https://example.com/app.msi
ManifestType: installer
`

func TestLoad_collects_files_and_identity(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"Vendor.App.yaml":           {Data: []byte(versionManifest)},
		"Vendor.App.installer.yaml": {Data: []byte(installerManifest)},
		"README.md":                 {Data: []byte("ignored")},
		"sub/other.yaml":            {Data: []byte("ignored: true")},
	}

	ch, err := manifest.Load(fsys)

	require.NoError(t, err)
	assert.Equal(t, "Vendor.App", ch.PackageIdentifier)
	assert.Equal(t, "1.2.3", ch.PackageVersion)
	assert.Equal(
		t,
		[]string{"Vendor.App.installer.yaml", "Vendor.App.yaml"},
		ch.FileNames(),
	)
	assert.Equal(t, []byte(versionManifest), ch.Files["Vendor.App.yaml"])
}

func TestLoad_rejects_disagreeing_files(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte(versionManifest)},
		"b.yaml": {Data: []byte(
			"PackageIdentifier: Vendor.App\nPackageVersion: 2.0.1\n",
		)},
	}

	_, err := manifest.Load(fsys)

	assert.ErrorContains(t, err, "b.yaml declares Vendor.App 2.0.1")
}

func TestLoad_empty_directory(t *testing.T) {
	t.Parallel()

	_, err := manifest.Load(fstest.MapFS{})

	assert.ErrorContains(t, err, "no manifest files found")
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "Vendor.App.yml"),
		[]byte(versionManifest),
		0o600,
	))

	ch, err := manifest.LoadDir(dir)

	require.NoError(t, err)
	assert.Equal(t, "Vendor.App-1.2.3", ch.BranchName())
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    manifest.Document
		wantErr string
	}{
		{
			name: "version manifest",
			raw:  versionManifest,
			want: manifest.Document{
				Name:       "f.yaml",
				Identifier: "Vendor.App",
				Version:    "1.2.3",
				Type:       "version",
			},
		},
		{
			name: "unquoted numeric version",
			raw:  "PackageIdentifier: Vendor.App\nPackageVersion: 1.2\n",
			want: manifest.Document{
				Name:       "f.yaml",
				Identifier: "Vendor.App",
				Version:    "1.2",
			},
		},
		{
			name:    "missing identifier",
			raw:     "PackageVersion: 1.0\n",
			wantErr: "missing PackageIdentifier",
		},
		{
			name:    "missing version",
			raw:     "PackageIdentifier: A.B\n",
			wantErr: "missing PackageVersion",
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: "empty document",
		},
		{
			name:    "invalid yaml",
			raw:     "a: [b",
			wantErr: "decoding yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := manifest.Parse("f.yaml", []byte(tt.raw))

			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
