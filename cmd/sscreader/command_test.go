package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-ssc/config"
	"github.com/spacemeshos/go-ssc/sim"
)

func TestRun(t *testing.T) {
	conf := config.DefaultConfig()
	conf.Steps = 3
	conf.Shape = []uint{8, 8}
	conf.Report = filepath.Join(t.TempDir(), "report.json")
	conf.LOGGING.AppLoggerLevel = "error"
	conf.LOGGING.ReaderLoggerLevel = "error"
	conf.LOGGING.WriterLoggerLevel = "error"
	require.NoError(t, run(context.Background(), &conf))

	data, err := os.ReadFile(conf.Report)
	require.NoError(t, err)
	var report sim.Report
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Readers, conf.Readers)
	require.NotEmpty(t, report.DOID)
}

func TestRunInvalidLogger(t *testing.T) {
	conf := config.DefaultConfig()
	conf.LOGGING.WriterLoggerLevel = "loud"
	require.ErrorContains(t, run(context.Background(), &conf), "writer logger")
}

func TestCommandFlags(t *testing.T) {
	c := GetCommand()
	require.NotNil(t, c.Flags().Lookup("config"))
	require.NotNil(t, c.Flags().Lookup("step-mode"))
	require.NotNil(t, c.Flags().Lookup("metrics-push-retries"))
}
