package cmd

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maro_automation/comfort-studio/config"
	"maro_automation/comfort-studio/store"
)

func testApp(t *testing.T) *app {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return &app{env: &config.Config{OutputDir: t.TempDir()}, logger: logger}
}

func TestRecordsReuseThePipelineHistory(t *testing.T) {
	a := testApp(t)
	history := &store.MongoStore{}

	assert.Same(t, history, a.records(history))
}

func TestRecordsFallBackToFiles(t *testing.T) {
	a := testApp(t)

	_, ok := a.records(nil).(*store.FileWriter)
	assert.True(t, ok)
}

func TestHistoryWithoutMongoURI(t *testing.T) {
	a := testApp(t)

	history, closeFn, err := a.history(context.Background())
	require.NoError(t, err)
	assert.Nil(t, history)
	require.NotNil(t, closeFn)
	closeFn()
}
