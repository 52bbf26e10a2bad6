package setup

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posbindu-risk-engine/internal/domain"
	"github.com/posbindu-risk-engine/internal/store"
)

func TestRegister_PreservesOtherEntries(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "client", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte(`{
		"theme": "dark",
		"mcpServers": {"other": {"command": "/usr/bin/other"}}
	}`), 0644))

	// Act
	err := Register(Options{
		ConfigPath: configPath,
		BinaryPath: "/opt/posbindu/mcp-server-lite",
		DataDir:    filepath.Join(dir, "data"),
		LogLevel:   "debug",
	})

	// Assert
	require.NoError(t, err)

	cfg, err := LoadClientConfig(configPath)
	require.NoError(t, err)
	assert.Contains(t, cfg.MCPServers, "other")
	entry := cfg.MCPServers[ServerName]
	assert.Equal(t, "/opt/posbindu/mcp-server-lite", entry.Command)
	assert.Equal(t, filepath.Join(dir, "data"), entry.Env["POSBINDU_DATA_DIR"])
	assert.Equal(t, "debug", entry.Env["POSBINDU_LOG_LEVEL"])

	var raw map[string]interface{}
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "dark", raw["theme"])

	_, err = os.Stat(filepath.Join(dir, "data", "exports"))
	assert.NoError(t, err)
}

func TestRegister_RequiresBinary(t *testing.T) {
	err := Register(Options{ConfigPath: filepath.Join(t.TempDir(), "config.json")})
	assert.Error(t, err)
}

func TestLoadClientConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadClientConfig(path)
	assert.Error(t, err)

	cfg, err := LoadClientConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestGetStatus(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	dataDir := filepath.Join(dir, "data")

	status, err := GetStatus(ctx, configPath)
	require.NoError(t, err)
	assert.False(t, status.Registered)
	assert.NotEmpty(t, status.Issues)

	binary, err := os.Executable()
	require.NoError(t, err)
	require.NoError(t, Register(Options{ConfigPath: configPath, BinaryPath: binary, DataDir: dataDir}))

	st, err := store.NewSQLiteStore(filepath.Join(dataDir, "assessments.db"))
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, &domain.VisitAssessment{
		ID:            "a-1",
		VisitID:       "v-1",
		ParticipantID: "p-1",
		AssessedAt:    time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, st.Close())

	// Act
	status, err = GetStatus(ctx, configPath)

	// Assert
	require.NoError(t, err)
	assert.True(t, status.Registered)
	assert.True(t, status.BinaryFound)
	assert.Equal(t, dataDir, status.DataDir)
	assert.True(t, status.DatabaseExists)
	assert.Equal(t, 1, status.Assessments)
	assert.Empty(t, status.Issues)
}

func TestCLI_Run(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	tests := []struct {
		name      string
		args      []string
		contains  string
		expectErr bool
	}{
		{"help", nil, "Usage:", false},
		{"register", []string{"register", "-c", configPath, "-b", "/bin/true", "-d", filepath.Join(dir, "data")}, "Registered posbindu-risk-engine", false},
		{"status", []string{"status", "--config", configPath}, "Registered:    true", false},
		{"unknown command", []string{"wizard"}, "Usage:", true},
		{"missing value", []string{"register", "--binary"}, "", true},
		{"unknown option", []string{"status", "--verbose", "x"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := NewCLI(&out).Run(ctx, tt.args)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out.String(), tt.contains)
		})
	}
}
