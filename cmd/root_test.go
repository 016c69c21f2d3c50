package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/clinic-ingest/internal/config"
	"github.com/sells-group/clinic-ingest/internal/marketing"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"import", "verify", "crawl", "logs"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "clinic-ingest", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestImportCommand_Flags(t *testing.T) {
	flag := importCmd.Flags().Lookup("dry-run")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
	assert.Error(t, importCmd.Args(importCmd, []string{"a.csv", "b.csv"}))
	assert.NoError(t, importCmd.Args(importCmd, nil))
}

func TestVerifyCommand_Flags(t *testing.T) {
	flag := verifyCmd.Flags().Lookup("by")
	require.NotNil(t, flag)
	assert.Equal(t, "bulk-verify", flag.DefValue)
	assert.Error(t, verifyCmd.Args(verifyCmd, nil))
}

func TestCrawlCommand_Flags(t *testing.T) {
	require.NotNil(t, crawlCmd.Flags().Lookup("id"))
	require.NotNil(t, crawlCmd.Flags().Lookup("url"))
}

func TestLogsCommand_Flags(t *testing.T) {
	flag := logsCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "20", flag.DefValue)
}

func TestNewCopywriter(t *testing.T) {
	_, ok := newCopywriter(config.AnthropicConfig{}).(marketing.TemplateGenerator)
	assert.True(t, ok, "no key falls back to template copy")

	_, ok = newCopywriter(config.AnthropicConfig{Key: "sk-test", Model: "m", MaxTokens: 100}).(*marketing.AnthropicGenerator)
	assert.True(t, ok)
}

func TestLoadTaxonomy_Default(t *testing.T) {
	tax, err := loadTaxonomy(&config.Config{})
	require.NoError(t, err)
	assert.NotEmpty(t, tax.CategoryNames())
}
