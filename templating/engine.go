package templating

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/valyala/fasttemplate"
)

// Default templates.
const (
	DefaultCommit = "{{state}}: {{identifier}} version {{version}}"
	DefaultTitle  = "{{state}}: {{identifier}} version {{version}}"
	DefaultBody   = "### {{state}}: {{identifier}} version {{version}}\n" +
		"\n" +
		"Branch `{{branch}}` updates `{{directory}}`:\n" +
		"\n" +
		"{{files}}\n"
)

// Templates groups the three texts rendered for a
// change.
type Templates struct {
	Commit string
	Title  string
	Body   string
}

// DefaultTemplates returns the built-in templates.
func DefaultTemplates() Templates {
	return Templates{
		Commit: DefaultCommit,
		Title:  DefaultTitle,
		Body:   DefaultBody,
	}
}

// WithDefaults fills empty templates with the built-in
// ones.
func (t Templates) WithDefaults() Templates {
	def := DefaultTemplates()

	if t.Commit == "" {
		t.Commit = def.Commit
	}

	if t.Title == "" {
		t.Title = def.Title
	}

	if t.Body == "" {
		t.Body = def.Body
	}

	return t
}

// Engine renders templates against change variables
// and user variables.
type Engine struct {
	StartTag string
	EndTag   string
	// Variables are user supplied NAME=VALUE pairs.
	Variables []string
}

// Render expands tpl against vars.
//
// Processing order:
//  1. vars form the base context.
//  2. Each user variable NAME=VALUE has VALUE expanded
//     against the base context using single-brace tags,
//     then is stored as both "NAME" and
//     "variables.NAME", overriding the base.
//  3. tpl is expanded against the context with the
//     configured tags. Unknown tags are kept verbatim.
func (en *Engine) Render(
	tpl string,
	vars map[string]string,
) (string, error) {
	const errCtx = "rendering template"

	base := make(map[string]interface{}, len(vars))
	for key, val := range vars {
		base[key] = val
	}

	ctx := make(map[string]interface{}, len(base))
	for key, val := range base {
		ctx[key] = val
	}

	if err := en.resolveVars(base, ctx); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	startTag, endTag := en.tags()

	var sb strings.Builder

	if _, err := fasttemplate.ExecuteStd(
		tpl, startTag, endTag, &sb, ctx,
	); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return sb.String(), nil
}

// tags returns the configured start/end tags, falling
// back to double-brace defaults.
func (en *Engine) tags() (string, string) {
	startTag := en.StartTag
	if startTag == "" {
		startTag = "{{"
	}

	endTag := en.EndTag
	if endTag == "" {
		endTag = "}}"
	}

	return startTag, endTag
}

func (en *Engine) resolveVars(
	base map[string]interface{},
	ctx map[string]interface{},
) error {
	const errCtx = "resolving variables"

	for _, vr := range en.Variables {
		parts := strings.SplitN(vr, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return fmt.Errorf(
				"%s: variable must be VAR=value, got %s",
				errCtx, vr,
			)
		}

		val := fasttemplate.ExecuteStringStd(
			parts[1], "{", "}", base,
		)

		ctx[parts[0]] = val
		ctx["variables."+parts[0]] = val
	}

	return nil
}

// ReadTemplate returns ref itself, or the content of
// the file it names when it starts with '@'.
func ReadTemplate(ref string) (string, error) {
	const errCtx = "reading template"

	p, ok := strings.CutPrefix(ref, "@")
	if !ok {
		return ref, nil
	}

	content, err := os.ReadFile(p) //nolint:gosec // path from configuration
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return string(content), nil
}

// FileList renders names as a markdown bullet list.
func FileList(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	var sb strings.Builder

	for i, name := range sorted {
		if i > 0 {
			sb.WriteByte('\n')
		}

		sb.WriteString("- `")
		sb.WriteString(name)
		sb.WriteByte('`')
	}

	return sb.String()
}
