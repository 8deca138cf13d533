package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/urbancover/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"process", "serve", "inspect", "migrate"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "urbancover", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestProcessCommand_Flags(t *testing.T) {
	flag := processCmd.Flags().Lookup("event")
	require.NotNil(t, flag, "process command should have --event flag")
	assert.Equal(t, "", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestInspectCommand_Args(t *testing.T) {
	require.NotNil(t, inspectCmd.Flags().Lookup("bbox"))
	assert.Error(t, inspectCmd.Args(inspectCmd, nil))
	assert.NoError(t, inspectCmd.Args(inspectCmd, []string{"a.tif"}))
}

func TestRootCommand_LogFlags(t *testing.T) {
	for _, name := range []string{"log-level", "log-format"} {
		flag := rootCmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, "root command should have --%s flag", name)
		assert.Equal(t, "", flag.DefValue)
	}
}

func TestSetup_FlagsOverrideConfig(t *testing.T) {
	t.Cleanup(func() { logLevel, logFormat = "", "" })
	logLevel, logFormat = "debug", "console"

	c := &config.Config{Log: config.LogConfig{Level: "info", Format: "json"}}
	require.NoError(t, setup(migrateCmd, c))

	assert.Same(t, c, cfg)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestSetup_InvalidLogLevel(t *testing.T) {
	t.Cleanup(func() { logLevel = "" })
	logLevel = "loud"

	err := setup(migrateCmd, &config.Config{Log: config.LogConfig{Format: "json"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init logger")
}

func TestRasterCommandsInitGDAL(t *testing.T) {
	for _, c := range []*cobra.Command{processCmd, serveCmd, inspectCmd} {
		assert.Equal(t, "true", c.Annotations[annotationGDAL], c.Name())
	}
	assert.Empty(t, migrateCmd.Annotations[annotationGDAL])
}
