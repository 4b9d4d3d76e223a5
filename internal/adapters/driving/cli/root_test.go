package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"sync", "duplicates", "record", "config", "schedule", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"verbose", "env", "data-dir", "memory"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "v", rootCmd.PersistentFlags().Lookup("verbose").Shorthand)
}

func TestSetup_PassesOptionsToBootstrap(t *testing.T) {
	svc := setupTestServices(t)

	var got []Options
	cleaned := 0
	bootstrap = func(_ context.Context, o Options) (*Services, func(), error) {
		got = append(got, o)
		return &Services{
			Reconcile:   svc.reconcile,
			Records:     svc.records,
			Scheduler:   svc.scheduler,
			ConfigStore: svc.store,
			Config:      runtimeConfig,
		}, func() { cleaned++ }, nil
	}

	_, err := execute("--data-dir", "/srv/shelf", "--memory", "--env", "dev.env", "config", "list")
	require.NoError(t, err)
	_, err = execute("record", "list", "book")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, Options{EnvFile: "dev.env", DataDir: "/srv/shelf", Memory: true, ConfigOnly: true}, got[0])
	assert.False(t, got[1].ConfigOnly)
	assert.Equal(t, 2, cleaned)
}

func TestSetup_BootstrapError(t *testing.T) {
	svc := setupTestServices(t)
	bootstrap = func(_ context.Context, _ Options) (*Services, func(), error) {
		return nil, nil, errBoom
	}

	_, err := execute("duplicates", "preview", "book")

	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, svc.reconcile.lastType)
}

func TestExecute_RequiresBootstrap(t *testing.T) {
	err := Execute(context.Background(), nil, "1.0.0")
	assert.Error(t, err)
}

func TestExecute_SetsVersion(t *testing.T) {
	svc := setupTestServices(t)
	originalVersion := version
	defer func() { version = originalVersion }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := Execute(context.Background(), func(_ context.Context, _ Options) (*Services, func(), error) {
		return &Services{ConfigStore: svc.store}, nil, nil
	}, "2.0.0")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "shelfsync version 2.0.0")
}
