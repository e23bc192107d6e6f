package introspect

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	in := libraryFixture()

	require.NoError(t, WriteFile(fs, "/schemas/library.yaml", in))

	out, err := ReadFile(fs, "/schemas/library.yaml")
	require.NoError(t, err)
	assert.Equal(t, MustSnapshot(in).Fingerprint(), MustSnapshot(out).Fingerprint())
	assert.Equal(t, "'untitled'", *out.Tables[1].Columns[3].DefaultValue)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
		tables  int
	}{
		{
			name: "yaml",
			data: `
formatVersion: "1.0"
tables:
  - name: User
    columns:
      - name: id
        type: INTEGER
    primaryKey:
      columns: [id]
`,
			tables: 1,
		},
		{
			name:   "json",
			data:   `{"formatVersion": "1.2", "tables": [{"name": "a"}, {"name": "b"}]}`,
			tables: 2,
		},
		{
			name:    "missing version",
			data:    `tables: []`,
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:    "future major version",
			data:    `formatVersion: "2.0"`,
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:    "malformed version",
			data:    `formatVersion: "one"`,
			wantErr: ErrUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := Decode([]byte(tt.data))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, schema.Tables, tt.tables)
		})
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode([]byte("formatVersion: \"1.0\"\nsequences: []\n"))
	assert.Error(t, err)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(afero.NewMemMapFs(), "/nope.yaml")
	assert.Error(t, err)
}
