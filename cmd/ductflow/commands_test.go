package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ductflow/internal/service"
)

const branchYAML = `
id: branch
name: Branch
flow_unit: m3/h
nodes:
  - {id: D1, category: duct, connectors: [{kind: end}, {kind: end}]}
  - {id: F1, category: duct_fitting, connectors: [{kind: end}, {kind: end}, {kind: end}]}
  - {id: T1, category: duct_terminal, parameters: {airflow: 360}, connectors: [{kind: end}]}
  - {id: T2, category: duct_terminal, parameters: {airflow: 180}, connectors: [{kind: end}]}
links:
  - {from: {node: D1, connector: 1}, to: {node: F1, connector: 0}}
  - {from: {node: F1, connector: 1}, to: {node: T1, connector: 0}}
  - {from: {node: F1, connector: 2}, to: {node: T2, connector: 0}}
`

// setup writes a config pointing at a scratch database and a network file
func setup(t *testing.T) (configPath, networkPath string) {
	t.Helper()
	dir := t.TempDir()

	configPath = filepath.Join(dir, "ductflow.yaml")
	cfg := "database:\n  path: " + filepath.Join(dir, "ductflow.db") + "\nlogging:\n  level: error\n" +
		"traversal:\n  start_categories: [duct]\n"
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0644))

	networkPath = filepath.Join(dir, "branch.yaml")
	require.NoError(t, os.WriteFile(networkPath, []byte(branchYAML), 0644))
	return configPath, networkPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestComputeFromFile(t *testing.T) {
	cfg, network := setup(t)

	out, err := run(t, "--config", cfg, "compute", "--file", network, "--start", "D1")
	require.NoError(t, err)
	assert.Equal(t, "The total airflow is: 150 L/s\n", out)

	out, err = run(t, "--config", cfg, "compute", "-f", network, "-s", "D1", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "T1 via F1: 100 L/s")
	assert.Contains(t, out, "T2 via F1: 50 L/s")
}

func TestComputeJSON(t *testing.T) {
	cfg, network := setup(t)

	out, err := run(t, "--config", cfg, "compute", "--file", network, "--start", "D1", "--json")
	require.NoError(t, err)

	var result service.ComputeResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "branch", result.NetworkID)
	assert.InDelta(t, 150.0, result.Total, 1e-9)
	assert.Len(t, result.Contributions, 2)
}

func TestComputeErrors(t *testing.T) {
	cfg, network := setup(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no source", []string{"compute", "--start", "D1"}},
		{"both sources", []string{"compute", "--file", network, "--network", "branch", "--start", "D1"}},
		{"no start", []string{"compute", "--file", network}},
		{"start not allowed", []string{"compute", "--file", network, "--start", "F1"}},
		{"unknown start", []string{"compute", "--file", network, "--start", "D9"}},
		{"missing file", []string{"compute", "--file", network + ".missing.yaml", "--start", "D1"}},
		{"unknown network", []string{"compute", "--network", "nope", "--start", "D1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"--config", cfg}, tt.args...)...)
			assert.Error(t, err)
		})
	}
}

func TestImportListCompute(t *testing.T) {
	cfg, network := setup(t)

	out, err := run(t, "--config", cfg, "networks")
	require.NoError(t, err)
	assert.Equal(t, "No networks stored\n", out)

	out, err = run(t, "--config", cfg, "import", network)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported branch")
	assert.Contains(t, out, "4 nodes, 2 terminals")

	out, err = run(t, "--config", cfg, "import", network)
	require.NoError(t, err)
	assert.Contains(t, out, "Replaced branch")

	out, err = run(t, "--config", cfg, "networks")
	require.NoError(t, err)
	assert.Contains(t, out, "branch")
	assert.Contains(t, out, "m3/h")

	out, err = run(t, "--config", cfg, "compute", "--network", "branch", "--start", "D1")
	require.NoError(t, err)
	assert.Equal(t, "The total airflow is: 150 L/s\n", out)
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg, network := setup(t)
	db := filepath.Join(t.TempDir(), "other.db")

	_, err := run(t, "--config", cfg, "--db", db, "import", network)
	require.NoError(t, err)

	_, err = os.Stat(db)
	assert.NoError(t, err)

	_, err = run(t, "--config", cfg, "--log-level", "chatty", "networks")
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	cfg, _ := setup(t)
	target := filepath.Join(t.TempDir(), "nested", "ductflow.yaml")

	out, err := run(t, "--config", cfg, "config", "init", target)
	require.NoError(t, err)
	assert.Equal(t, "Wrote "+target+"\n", out)

	_, err = run(t, "--config", cfg, "config", "init", target)
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "--config", cfg, "config", "init", "--force", target)
	require.NoError(t, err)

	out, err = run(t, "--config", target, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Database: "+filepath.Join(filepath.Dir(cfg), "ductflow.db"))
	assert.Contains(t, out, "Starts: [duct]")
}
