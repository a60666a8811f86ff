package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePathValidator(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "absolute", input: "/var/cache/guardfeed", want: "/var/cache/guardfeed"},
		{name: "cleaned", input: "/var/cache//guardfeed/../guardfeed/", want: "/var/cache/guardfeed"},
		{name: "tilde", input: "~/.guardfeed/cache", want: filepath.Join(home, ".guardfeed", "cache")},
		{name: "relative", input: "cache", want: filepath.Join(cwd, "cache")},
		{name: "empty", input: "", wantErr: true},
		{name: "nul byte", input: "/tmp/a\x00b", wantErr: true},
	}

	v := NewCachePathValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateAndExpand(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandPath(t *testing.T) {
	assert.Equal(t, "", ExpandPath(""))
	assert.True(t, filepath.IsAbs(ExpandPath("~/x")))
}
