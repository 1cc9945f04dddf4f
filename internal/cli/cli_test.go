package cli

import (
	"bytes"
	"testing"

	"github.com/smallbiznis/salestax/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "salestax dev (none)\n", out.String())
}

func TestRootRegistersCommands(t *testing.T) {
	cmd := newRootCmd()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.True(t, names["version"])

	migrate, _, err := cmd.Find([]string{"migrate"})
	require.NoError(t, err)
	assert.NotNil(t, migrate.Flags().Lookup("seed"))
}

func TestRegisterSnowflake(t *testing.T) {
	node, err := RegisterSnowflake(config.Config{NodeID: 3})
	require.NoError(t, err)
	assert.NotZero(t, node.Generate())

	_, err = RegisterSnowflake(config.Config{NodeID: 5000})
	assert.Error(t, err)
}
