package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	SetDefaults()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "templates", cfg.Paths.TemplatesDir)
	assert.Equal(t, "/rest/api/3", cfg.Atlassian.JiraAPIEndpoint)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadRejectsBadBackend(t *testing.T) {
	viper.Reset()
	SetDefaults()
	viper.Set("storage.backend", "s3")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
}

func TestLoadCollectsAllErrors(t *testing.T) {
	viper.Reset()
	SetDefaults()
	viper.Set("storage.backend", "s3")
	viper.Set("logging.level", "loud")
	viper.Set("paths.templates_dir", "")

	_, err := Load()
	require.Error(t, err)
	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 3)
}

func TestValidateJiraURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Atlassian.JiraURL = "acme.atlassian.net"
	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "atlassian.jira_url", errs[0].Field)

	cfg.Atlassian.JiraURL = "https://acme.atlassian.net"
	assert.Empty(t, cfg.Validate())
}
