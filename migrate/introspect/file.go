package introspect

import (
	"bytes"
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
)

// FormatVersion is written into every snapshot file
const FormatVersion = "1.0"

// supportedFormats is the range of snapshot file versions this build reads
var supportedFormats = version.MustConstraints(version.NewConstraint(">= 1.0, < 2.0"))

// snapshotFile is the on-disk layout of a snapshot
type snapshotFile struct {
	FormatVersion  string `yaml:"formatVersion"`
	DatabaseSchema `yaml:",inline"`
}

// ReadFile loads a snapshot file. JSON files are accepted as well since
// they are valid YAML.
func ReadFile(fs afero.Fs, path string) (*DatabaseSchema, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	return Decode(data)
}

// Decode parses snapshot file content
func Decode(data []byte) (*DatabaseSchema, error) {
	var file snapshotFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	if file.FormatVersion == "" {
		return nil, fmt.Errorf("%w: missing formatVersion", ErrUnsupportedFormat)
	}
	v, err := version.NewVersion(file.FormatVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if !supportedFormats.Check(v) {
		return nil, fmt.Errorf("%w: version %s does not satisfy %s", ErrUnsupportedFormat, v, supportedFormats)
	}

	schema := file.DatabaseSchema
	return &schema, nil
}

// WriteFile stores schema as a YAML snapshot file
func WriteFile(fs afero.Fs, path string, schema *DatabaseSchema) error {
	data, err := Encode(schema)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return nil
}

// Encode renders schema as snapshot file content
func Encode(schema *DatabaseSchema) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(snapshotFile{FormatVersion: FormatVersion, DatabaseSchema: *schema}); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}
