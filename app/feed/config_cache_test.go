package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSourceConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeSourceConfig(t, tempDir, "cs-cl", `
url: "https://export.arxiv.org/api/query?search_query=cat:cs.CL"

settings:
  enabled: true
  template: compact
  page_size: 25
  timeout: 15
  refresh_interval: 1800

filters:
  - field: "title"
    includes:
      - "transformer"
    excludes:
      - "survey"
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 config, got %d", configCache.GetConfigCount())
	}

	feedConfig, err := configCache.GetConfig("cs-cl")
	if err != nil {
		t.Fatal(err)
	}

	if feedConfig.Name != "cs-cl" {
		t.Errorf("Expected name 'cs-cl', got '%s'", feedConfig.Name)
	}
	if feedConfig.URL != "https://export.arxiv.org/api/query?search_query=cat:cs.CL" {
		t.Errorf("Expected arXiv query URL, got '%s'", feedConfig.URL)
	}
	if feedConfig.Settings.Template != "compact" {
		t.Errorf("Expected template 'compact', got '%s'", feedConfig.Settings.Template)
	}
	if feedConfig.Settings.PageSize != 25 {
		t.Errorf("Expected page size 25, got %d", feedConfig.Settings.PageSize)
	}
	if feedConfig.Settings.Timeout != 15 {
		t.Errorf("Expected timeout 15, got %d", feedConfig.Settings.Timeout)
	}
	if feedConfig.Settings.RefreshInterval != 1800 {
		t.Errorf("Expected refresh interval 1800, got %d", feedConfig.Settings.RefreshInterval)
	}
	if len(feedConfig.Filters) != 1 || feedConfig.Filters[0].Excludes[0] != "survey" {
		t.Errorf("Expected 1 title filter, got %+v", feedConfig.Filters)
	}
}

func TestConfigCacheLoadConfigWithDefaults(t *testing.T) {
	tempDir := t.TempDir()

	writeSourceConfig(t, tempDir, "minimal", `
url: "https://export.arxiv.org/api/query?search_query=cat:cs.AI"

settings:
  enabled: true
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	feedConfig, err := configCache.GetConfig("minimal")
	if err != nil {
		t.Fatal(err)
	}

	if feedConfig.Settings.Template != DefaultTemplate {
		t.Errorf("Expected default template '%s', got '%s'", DefaultTemplate, feedConfig.Settings.Template)
	}
	if feedConfig.Settings.PageSize != DefaultPageSize {
		t.Errorf("Expected default page size %d, got %d", DefaultPageSize, feedConfig.Settings.PageSize)
	}
	if feedConfig.Settings.Timeout != DefaultTimeout {
		t.Errorf("Expected default timeout %d, got %d", DefaultTimeout, feedConfig.Settings.Timeout)
	}
	if feedConfig.Settings.RefreshInterval != DefaultRefreshInterval {
		t.Errorf("Expected default refresh interval %d, got %d", DefaultRefreshInterval, feedConfig.Settings.RefreshInterval)
	}
}

func TestConfigCacheInvalidConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeSourceConfig(t, tempDir, "invalid", `
settings:
  enabled: true
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err == nil {
		t.Error("Expected error for config without URL")
	}
}

func TestConfigCacheMissingDirectory(t *testing.T) {
	configCache := NewConfigCache(filepath.Join(t.TempDir(), "absent"))
	if err := configCache.Run(); err != nil {
		t.Fatalf("Expected missing directory to be ignored, got: %v", err)
	}

	if configCache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 configs, got %d", configCache.GetConfigCount())
	}
}

func TestConfigCacheReloadConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeSourceConfig(t, tempDir, "reload", `
url: "https://export.arxiv.org/api/query?search_query=cat:cs.CL"
settings:
  enabled: true
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	writeSourceConfig(t, tempDir, "reload", `
url: "https://export.arxiv.org/api/query?search_query=cat:cs.LG"
settings:
  enabled: true
  page_size: 50
`)

	reloaded, err := configCache.LoadConfig("reload")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasSuffix(reloaded.URL, "cat:cs.LG") {
		t.Errorf("Expected updated URL, got '%s'", reloaded.URL)
	}

	cached, err := configCache.GetConfig("reload")
	if err != nil {
		t.Fatal(err)
	}
	if cached.Settings.PageSize != 50 {
		t.Errorf("Expected cached page size 50 after reload, got %d", cached.Settings.PageSize)
	}

	if _, err := configCache.LoadConfig("nonexistent"); err == nil {
		t.Error("Expected error for non-existent config")
	}

	writeSourceConfig(t, tempDir, "reload", "invalid yaml content")
	if _, err := configCache.LoadConfig("reload"); err == nil {
		t.Error("Expected error for invalid config file")
	}
}

func TestConfigCacheGetConfigs(t *testing.T) {
	tempDir := t.TempDir()

	writeSourceConfig(t, tempDir, "enabled", `
url: "https://export.arxiv.org/api/query?search_query=cat:cs.CL"
settings:
  enabled: true
`)
	writeSourceConfig(t, tempDir, "disabled", `
url: "https://export.arxiv.org/api/query?search_query=cat:cs.AI"
settings:
  enabled: false
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	allConfigs := configCache.GetConfigs()
	if len(allConfigs) != 2 {
		t.Errorf("Expected 2 configs, got %d", len(allConfigs))
	}

	delete(allConfigs, "enabled")
	if configCache.GetConfigCount() != 2 {
		t.Error("Modifying returned configs map affected the cache")
	}

	enabled := configCache.GetEnabledConfigs()
	if len(enabled) != 1 || enabled["enabled"] == nil {
		t.Errorf("Expected only the enabled config, got %v", enabled)
	}
}

func TestConfigCacheGetConfigNotFound(t *testing.T) {
	configCache := NewConfigCache(t.TempDir())
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	_, err := configCache.GetConfig("any-feed")
	if err == nil {
		t.Fatal("Expected error for unknown feed name, got none")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected error message to contain 'not found', got: %v", err)
	}
}

func TestConfigCacheValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Name: "cs-cl",
			URL:  "https://export.arxiv.org/api/query?search_query=cat:cs.CL",
			Settings: ConfigSettings{
				Template:        DefaultTemplate,
				PageSize:        DefaultPageSize,
				Timeout:         DefaultTimeout,
				RefreshInterval: DefaultRefreshInterval,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty name", func(c *Config) { c.Name = "" }, "feed name is required"},
		{"empty URL", func(c *Config) { c.URL = "" }, "feed URL is required"},
		{"negative page size", func(c *Config) { c.Settings.PageSize = -1 }, "page size must be non-negative"},
		{"negative timeout", func(c *Config) { c.Settings.Timeout = -1 }, "timeout must be non-negative"},
		{"negative refresh interval", func(c *Config) { c.Settings.RefreshInterval = -1 }, "refresh interval must be non-negative"},
		{"page size too large", func(c *Config) { c.Settings.PageSize = MaxPageSize + 1 }, "must not exceed"},
		{"max page size", func(c *Config) { c.Settings.PageSize = MaxPageSize }, ""},
		{
			"invalid filter field",
			func(c *Config) { c.Filters = []ConfigFilter{{Field: "description", Includes: []string{"x"}}} },
			"invalid filter field",
		},
		{
			"filter without rules",
			func(c *Config) { c.Filters = []ConfigFilter{{Field: "title"}} },
			"at least one include or exclude",
		},
	}

	configCache := NewConfigCache("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feedConfig := valid()
			tt.mutate(feedConfig)

			err := configCache.validateConfig(feedConfig)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing '%s', got: %v", tt.wantErr, err)
			}
		})
	}

	if err := configCache.validateConfig(nil); err == nil {
		t.Error("Expected error for nil config, got none")
	}
}

func TestConfigCacheValidFilterFields(t *testing.T) {
	configCache := NewConfigCache("")

	for field := range FilterFields {
		feedConfig := &Config{
			Name:    "cs-cl",
			URL:     "https://export.arxiv.org/api/query",
			Filters: []ConfigFilter{{Field: field, Excludes: []string{"withdrawn"}}},
		}
		if err := configCache.validateConfig(feedConfig); err != nil {
			t.Errorf("Expected filter field '%s' to be valid, got: %v", field, err)
		}
	}
}
