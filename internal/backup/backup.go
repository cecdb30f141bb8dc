// Package backup moves grit state in and out of the database: in-database
// snapshots, and portable JSON documents validated against a schema.
package backup

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"

	"github.com/abhisek/grit/internal/store"
)

// Format tags a grit backup document.
const Format = "grit-backup"

// ErrIncompatible is returned for any document that cannot be imported:
// unparseable, schema-invalid, or from an unsupported major version.
var ErrIncompatible = errors.New("corrupted or incompatible backup")

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "schema://grit-backup.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Document is the on-disk backup layout.
type Document struct {
	Format     string             `json:"format"`
	ExportedAt time.Time          `json:"exported_at"`
	Data       store.SnapshotData `json:"data"`
}

// Encode writes data as an indented backup document.
func Encode(w io.Writer, data store.SnapshotData, now time.Time) error {
	doc := Document{Format: Format, ExportedAt: now.UTC(), Data: normalize(data)}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Decode reads and validates a backup document. Every failure wraps
// ErrIncompatible.
func Decode(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}

	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrIncompatible, err)
	}
	sch, err := schema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatible, err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatible, err)
	}
	if err := CheckVersion(doc.Data.Version); err != nil {
		return nil, err
	}
	doc.Data = normalize(doc.Data)
	return &doc, nil
}

// CheckVersion accepts any valid semver with the same major version as
// store.StateVersion.
func CheckVersion(v string) error {
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: version %q is not semver", ErrIncompatible, v)
	}
	if semver.Major(v) != semver.Major(store.StateVersion) {
		return fmt.Errorf("%w: version %s, want %s.x", ErrIncompatible, v, semver.Major(store.StateVersion))
	}
	return nil
}

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse backup schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// normalize replaces nil slices so documents always carry arrays.
func normalize(d store.SnapshotData) store.SnapshotData {
	if d.Topics == nil {
		d.Topics = []store.TopicRecord{}
	}
	if d.Revisions == nil {
		d.Revisions = []store.RevisionRecord{}
	}
	if d.Tasks == nil {
		d.Tasks = []store.TaskRecord{}
	}
	if d.Timeline == nil {
		d.Timeline = []store.TimelineRecord{}
	}
	return d
}
