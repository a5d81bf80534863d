package templating_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/manifest_submit/templating"
)

func changeVars() map[string]string {
	return map[string]string{
		"state":      "New version",
		"identifier": "Vendor.App",
		"version":    "1.2.3",
		"branch":     "Vendor.App-1.2.3",
		"directory":  "manifests/v/Vendor/App/1.2.3",
		"files":      "- `Vendor.App.yaml`",
	}
}

func TestRender_default_templates(t *testing.T) {
	t.Parallel()

	en := templating.Engine{}
	tpls := templating.DefaultTemplates()

	title, err := en.Render(tpls.Title, changeVars())
	require.NoError(t, err)
	assert.Equal(t, "New version: Vendor.App version 1.2.3", title)

	body, err := en.Render(tpls.Body, changeVars())
	require.NoError(t, err)
	assert.Contains(t, body, "Branch `Vendor.App-1.2.3` updates")
	assert.Contains(t, body, "- `Vendor.App.yaml`")
}

func TestRender_custom_tags(t *testing.T) {
	t.Parallel()

	en := templating.Engine{StartTag: "<%", EndTag: "%>"}

	got, err := en.Render("bump <%identifier%> {{version}}", changeVars())

	require.NoError(t, err)
	assert.Equal(t, "bump Vendor.App {{version}}", got)
}

func TestRender_unknown_tags_are_kept(t *testing.T) {
	t.Parallel()

	en := templating.Engine{}

	got, err := en.Render("{{nope}} {{version}}", changeVars())

	require.NoError(t, err)
	assert.Equal(t, "{{nope}} 1.2.3", got)
}

func TestRender_user_variables(t *testing.T) {
	t.Parallel()

	en := templating.Engine{
		Variables: []string{
			"ticket=REL-{version}",
			"version=override",
		},
	}

	got, err := en.Render(
		"{{variables.ticket}} {{ticket}} {{version}}", changeVars(),
	)

	require.NoError(t, err)
	assert.Equal(t, "REL-1.2.3 REL-1.2.3 override", got)
}

func TestRender_malformed_variable(t *testing.T) {
	t.Parallel()

	en := templating.Engine{Variables: []string{"novalue"}}

	_, err := en.Render("x", nil)

	assert.ErrorContains(t, err, "variable must be VAR=value")
}

func TestTemplates_WithDefaults(t *testing.T) {
	t.Parallel()

	got := templating.Templates{Title: "t"}.WithDefaults()

	assert.Equal(t, "t", got.Title)
	assert.Equal(t, templating.DefaultCommit, got.Commit)
	assert.Equal(t, templating.DefaultBody, got.Body)
}

func TestReadTemplate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "body.md")
	require.NoError(t, os.WriteFile(p, []byte("from file"), 0o600))

	got, err := templating.ReadTemplate("@" + p)
	require.NoError(t, err)
	assert.Equal(t, "from file", got)

	got, err = templating.ReadTemplate("inline")
	require.NoError(t, err)
	assert.Equal(t, "inline", got)

	_, err = templating.ReadTemplate("@" + filepath.Join(dir, "missing"))
	assert.ErrorContains(t, err, "reading template")
}

func TestFileList(t *testing.T) {
	t.Parallel()

	assert.Equal(
		t,
		"- `a.yaml`\n- `b.yaml`",
		templating.FileList([]string{"b.yaml", "a.yaml"}),
	)
	assert.Empty(t, templating.FileList(nil))
}
