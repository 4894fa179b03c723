package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUp_Embedded(t *testing.T) {
	got, err := Up()
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].Version)
	assert.Equal(t, "001_initial", got[0].Name)
	assert.Contains(t, got[0].SQL, "CREATE TABLE")
	assert.Equal(t, 2, got[1].Version)
	assert.Equal(t, "002_chunk_vectors", got[1].Name)
}

func TestLoad_OrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"010_late.up.sql":    {Data: []byte("SELECT 10;")},
		"002_early.up.sql":   {Data: []byte("SELECT 2;")},
		"002_early.down.sql": {Data: []byte("SELECT -2;")},
	}

	got, err := load(fsys)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []int{2, 10}, []int{got[0].Version, got[1].Version})
	assert.Equal(t, "SELECT 2;", got[0].SQL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		want string
	}{
		{
			name: "no version",
			fsys: fstest.MapFS{"initial.up.sql": {Data: []byte("x")}},
			want: "missing version prefix",
		},
		{
			name: "duplicate version",
			fsys: fstest.MapFS{
				"001_a.up.sql": {Data: []byte("x")},
				"001_b.up.sql": {Data: []byte("y")},
			},
			want: "already used",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(tt.fsys)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
