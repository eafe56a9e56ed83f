package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Restlight dev\n", out.String())
}

func TestRootCmdLayout(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"reset-gamma", "probe", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.Equal(t, "info", root.PersistentFlags().Lookup("log-level").DefValue)
}

func TestSettingsPath(t *testing.T) {
	o := &options{dataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "settings.json"), o.settingsPath())
	o.configPath = "/elsewhere/s.json"
	assert.Equal(t, "/elsewhere/s.json", o.settingsPath())
}
