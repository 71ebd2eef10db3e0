package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/config"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/store/sqlite"
)

func localConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.LLM.Providers = nil
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "app.db")
	return cfg
}

func TestNew_LocalSQLite(t *testing.T) {
	a, err := New(context.Background(), localConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &sqlite.DB{}, a.Store)
	assert.Nil(t, a.Objects)
	assert.Nil(t, a.Publisher)
	assert.NotNil(t, a.Analyzer)

	h := a.JobHandler()
	assert.NotNil(t, h.Store)
	assert.Nil(t, h.Publisher)
}

func TestNew_NoStore(t *testing.T) {
	cfg := localConfig(t)
	cfg.Store.Driver = "none"

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Store)
	assert.Nil(t, a.JobHandler().Store)
}

func TestNew_NotionWithoutToken(t *testing.T) {
	cfg := localConfig(t)
	cfg.Notion = config.NotionConfig{Enabled: true, DatabaseID: "db"}

	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "NOTION_TOKEN")
}

func TestNewCompleter(t *testing.T) {
	c, err := NewCompleter(context.Background(), config.LLMConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = NewCompleter(context.Background(), config.LLMConfig{
		Providers: []config.ProviderConfig{{Name: "gpt-4"}},
	})
	assert.ErrorContains(t, err, "unknown provider")
}

func TestJobHandler_AnalyzesAndSaves(t *testing.T) {
	a, err := New(context.Background(), localConfig(t))
	require.NoError(t, err)
	defer a.Close()

	text := "NUBANK - fatura\n" +
		"15/01 IFOOD RESTAURANTE -R$ 45,90\n" +
		"16/01 PAGAMENTO RECEBIDO R$ 1.200,00\n"

	id, err := a.JobHandler().Handle(context.Background(), &jobs.AnalysisJob{JobID: "job_1_x", Text: text, FileName: "nu.txt"})
	require.NoError(t, err)

	saved, err := a.Store.GetAnalysis(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "nu.txt", saved.FileName)
	assert.NotEmpty(t, saved.Transactions)
}
