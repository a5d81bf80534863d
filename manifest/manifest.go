package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/byte4ever/manifest_submit/gitops/change"
)

// Field names carrying the change identity.
const (
	FieldIdentifier = "PackageIdentifier"
	FieldVersion    = "PackageVersion"
	FieldType       = "ManifestType"
)

// Document is the identity part of one manifest file.
type Document struct {
	Name       string
	Identifier string
	Version    string
	Type       string
}

// LoadDir reads every YAML file directly under dir.
func LoadDir(dir string) (change.Change, error) {
	return Load(os.DirFS(dir))
}

// Load reads every .yaml/.yml file at the root of fsys
// into a change. All files must agree on the package
// identifier and version.
func Load(fsys fs.FS) (change.Change, error) {
	const errCtx = "loading manifests"

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return change.Change{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	ch := change.Change{Files: make(map[string][]byte)}

	var docs []Document

	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}

		raw, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return change.Change{}, fmt.Errorf(
				"%s: reading %s: %w", errCtx, e.Name(), err,
			)
		}

		doc, err := Parse(e.Name(), raw)
		if err != nil {
			return change.Change{}, fmt.Errorf("%s: %w", errCtx, err)
		}

		ch.Files[e.Name()] = raw
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return change.Change{}, fmt.Errorf(
			"%s: no manifest files found", errCtx,
		)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Name < docs[j].Name
	})

	for _, doc := range docs {
		if err := agree(&ch, doc); err != nil {
			return change.Change{}, fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	if err := ch.Validate(); err != nil {
		return change.Change{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return ch, nil
}

func agree(ch *change.Change, doc Document) error {
	if ch.PackageIdentifier == "" {
		ch.PackageIdentifier = doc.Identifier
		ch.PackageVersion = doc.Version

		return nil
	}

	if !strings.EqualFold(ch.PackageIdentifier, doc.Identifier) ||
		ch.PackageVersion != doc.Version {
		return fmt.Errorf(
			"%s declares %s %s, expected %s %s",
			doc.Name,
			doc.Identifier, doc.Version,
			ch.PackageIdentifier, ch.PackageVersion,
		)
	}

	return nil
}

// Parse decodes the identity fields of a manifest. Only
// the first non-empty document of the stream is used.
func Parse(name string, raw []byte) (Document, error) {
	const errCtx = "parsing manifest"

	obj, err := firstDoc(raw)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %s: %w", errCtx, name, err)
	}

	doc := Document{
		Name:       name,
		Identifier: extractString(obj, FieldIdentifier),
		Version:    extractString(obj, FieldVersion),
		Type:       extractString(obj, FieldType),
	}

	if doc.Identifier == "" {
		return Document{}, fmt.Errorf(
			"%s: %s: missing %s", errCtx, name, FieldIdentifier,
		)
	}

	if doc.Version == "" {
		return Document{}, fmt.Errorf(
			"%s: %s: missing %s", errCtx, name, FieldVersion,
		)
	}

	return doc, nil
}

func firstDoc(raw []byte) (map[string]interface{}, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(raw))

	for {
		var obj map[string]interface{}

		err := decoder.Decode(&obj)
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty document")
		}

		if err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}

		if obj != nil {
			return obj, nil
		}
	}
}

// extractString reads a scalar field. Numbers are
// rendered back to text so that an unquoted version
// such as 1.2 still reads as "1.2".
func extractString(obj map[string]interface{}, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func isYAML(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
