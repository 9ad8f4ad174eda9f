package pathutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{
			name: "plain path unchanged",
			path: "/var/lib/autogt/autogt.db",
			want: "/var/lib/autogt/autogt.db",
		},
		{
			name: "relative path unchanged",
			path: "data/autogt.db",
			want: "data/autogt.db",
		},
		{
			name: "bare tilde",
			path: "~",
			want: home,
		},
		{
			name: "tilde prefix",
			path: "~/.autogt/config.yaml",
			want: filepath.Join(home, ".autogt", "config.yaml"),
		},
		{
			name:    "tilde user form rejected",
			path:    "~other/config.yaml",
			wantErr: true,
		},
		{
			name: "empty path",
			path: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandHome(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name            string
		path            string
		errContains     string
		allowedBaseDirs []string
		wantErr         bool
	}{
		{
			name:    "valid relative path",
			path:    "configs/analysis.yaml",
			wantErr: false,
		},
		{
			name:        "path with directory traversal",
			path:        "../../../etc/passwd",
			wantErr:     true,
			errContains: "directory traversal",
		},
		{
			name:        "path with embedded traversal",
			path:        "configs/../../../etc/passwd",
			wantErr:     true,
			errContains: "directory traversal",
		},
		{
			name:            "path within allowed directory",
			path:            "data/analyses/test.json",
			allowedBaseDirs: []string{".", "data"},
			wantErr:         false,
		},
		{
			name:            "path outside allowed directory",
			path:            "/etc/passwd",
			allowedBaseDirs: []string{"data"},
			wantErr:         true,
			errContains:     "not within allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePath(tt.path, tt.allowedBaseDirs...)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, got)
				assert.True(t, filepath.IsAbs(got))
			}
		})
	}
}

func TestValidateConfigPath(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		errContains string
		wantErr     bool
	}{
		{
			name:    "valid yaml config",
			path:    "configs/autogt.yaml",
			wantErr: false,
		},
		{
			name:    "valid yml config",
			path:    "configs/autogt.yml",
			wantErr: false,
		},
		{
			name:        "invalid extension",
			path:        "configs/autogt.json",
			wantErr:     true,
			errContains: "extension",
		},
		{
			name:        "path traversal attempt",
			path:        "../../../etc/passwd.yaml",
			wantErr:     true,
			errContains: "directory traversal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateConfigPath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, got)
			}
		})
	}
}

func TestValidateOutputPath(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name        string
		path        string
		errContains string
		wantErr     bool
	}{
		{
			name:    "valid output path in existing directory",
			path:    filepath.Join(tmpDir, "report.json"),
			wantErr: false,
		},
		{
			name:        "output path in non-existent directory",
			path:        filepath.Join(tmpDir, "nonexistent", "report.json"),
			wantErr:     true,
			errContains: "parent directory does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateOutputPath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, got)
			}
		})
	}
}

func TestJoinAndValidate(t *testing.T) {
	baseDir := "/tmp/autogt-test"

	tests := []struct {
		name        string
		baseDir     string
		errContains string
		elems       []string
		wantErr     bool
	}{
		{
			name:    "valid join",
			baseDir: baseDir,
			elems:   []string{"analyses", "risks.json"},
			wantErr: false,
		},
		{
			name:        "join with traversal",
			baseDir:     baseDir,
			elems:       []string{"analyses", "..", "..", "..", "etc", "passwd"},
			wantErr:     true,
			errContains: "directory traversal",
		},
		{
			name:    "empty elements",
			baseDir: baseDir,
			elems:   []string{},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JoinAndValidate(tt.baseDir, tt.elems...)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, got)
				assert.True(t, strings.HasPrefix(got, baseDir))
			}
		})
	}
}
