package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	content := `
url: "https://api.example.com/shows"

settings:
  enabled: true
  refresh_interval: 43200
  timeout: 15
  min_records: 100
  max_pages: 10
  page_size: 50
`

	err := os.WriteFile(filepath.Join(tempDir, "test.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	configCache := NewConfigCache(tempDir)
	err = configCache.Run()
	if err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 sourceConfig, got %d", configCache.GetConfigCount())
	}

	sourceConfig, err := configCache.GetConfig("test")
	if err != nil {
		t.Fatal(err)
	}

	if sourceConfig.Name != "test" {
		t.Errorf("Expected name 'test', got '%s'", sourceConfig.Name)
	}
	if sourceConfig.URL != "https://api.example.com/shows" {
		t.Errorf("Expected URL 'https://api.example.com/shows', got '%s'", sourceConfig.URL)
	}
	if sourceConfig.Settings.RefreshInterval != 43200 {
		t.Errorf("Expected refresh interval 43200, got %d", sourceConfig.Settings.RefreshInterval)
	}
	if sourceConfig.Settings.Timeout != 15 {
		t.Errorf("Expected timeout 15, got %d", sourceConfig.Settings.Timeout)
	}
	if sourceConfig.Settings.MinRecords != 100 {
		t.Errorf("Expected min records 100, got %d", sourceConfig.Settings.MinRecords)
	}
	if sourceConfig.Settings.MaxPages != 10 {
		t.Errorf("Expected max pages 10, got %d", sourceConfig.Settings.MaxPages)
	}
	if sourceConfig.Settings.PageSize != 50 {
		t.Errorf("Expected page size 50, got %d", sourceConfig.Settings.PageSize)
	}
}

func TestConfigCacheLoadConfigWithDefaults(t *testing.T) {
	tempDir := t.TempDir()

	content := `
url: "https://api.example.com/shows"

settings:
  enabled: true
`

	err := os.WriteFile(filepath.Join(tempDir, "test.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	configCache := NewConfigCache(tempDir)
	err = configCache.Run()
	if err != nil {
		t.Fatal(err)
	}

	sourceConfig, err := configCache.GetConfig("test")
	if err != nil {
		t.Fatal(err)
	}

	if sourceConfig.Settings.RefreshInterval != 86400 {
		t.Errorf("Expected default refresh interval 86400, got %d", sourceConfig.Settings.RefreshInterval)
	}
	if sourceConfig.Settings.Timeout != 10 {
		t.Errorf("Expected default timeout 10, got %d", sourceConfig.Settings.Timeout)
	}
	if sourceConfig.Settings.MinRecords != 250 {
		t.Errorf("Expected default min records 250, got %d", sourceConfig.Settings.MinRecords)
	}
	if sourceConfig.Settings.MaxPages != 50 {
		t.Errorf("Expected default max pages 50, got %d", sourceConfig.Settings.MaxPages)
	}
	if sourceConfig.Settings.PageSize != 250 {
		t.Errorf("Expected default page size 250, got %d", sourceConfig.Settings.PageSize)
	}
	if sourceConfig.Settings.RetryAttempts != 5 {
		t.Errorf("Expected default retry attempts 5, got %d", sourceConfig.Settings.RetryAttempts)
	}
	if sourceConfig.Settings.RetryInitialDelay != 2 {
		t.Errorf("Expected default retry initial delay 2, got %d", sourceConfig.Settings.RetryInitialDelay)
	}
	if sourceConfig.Settings.RetryMaxDelay != 10 {
		t.Errorf("Expected default retry max delay 10, got %d", sourceConfig.Settings.RetryMaxDelay)
	}
}

func TestConfigCacheInvalidConfig(t *testing.T) {
	tempDir := t.TempDir()

	// Missing source URL
	content := `
settings:
  enabled: true
`

	err := os.WriteFile(filepath.Join(tempDir, "invalid.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	configCache := NewConfigCache(tempDir)
	err = configCache.Run()
	if err == nil {
		t.Error("Expected error for invalid sourceConfig")
	}
}

func TestConfigCacheEmptyDirectory(t *testing.T) {
	tempDir := t.TempDir()

	configCache := NewConfigCache(tempDir)
	err := configCache.Run()
	if err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 sourceConfigs from empty directory, got %d", configCache.GetConfigCount())
	}
}

func TestConfigCacheReloadConfig(t *testing.T) {
	tempDir := t.TempDir()

	initialContent := `
url: "https://api.example.com/shows"

settings:
  enabled: true
`

	configFile := filepath.Join(tempDir, "test.yml")
	err := os.WriteFile(configFile, []byte(initialContent), 0644)
	if err != nil {
		t.Fatal(err)
	}

	configCache := NewConfigCache(tempDir)
	err = configCache.Run()
	if err != nil {
		t.Fatal(err)
	}

	_, err = configCache.GetConfig("test")
	if err != nil {
		t.Fatal(err)
	}

	// Update the file on disk with new content
	updatedContent := `
url: "https://api.example.com/v2/shows"

settings:
  enabled: true
  min_records: 500
`

	err = os.WriteFile(configFile, []byte(updatedContent), 0644)
	if err != nil {
		t.Fatal(err)
	}

	reloadedConfig, err := configCache.LoadConfig("test")
	if err != nil {
		t.Fatal(err)
	}

	if reloadedConfig.URL != "https://api.example.com/v2/shows" {
		t.Errorf("Expected updated URL 'https://api.example.com/v2/shows', got '%s'", reloadedConfig.URL)
	}
	if reloadedConfig.Settings.MinRecords != 500 {
		t.Errorf("Expected updated min_records 500, got %d", reloadedConfig.Settings.MinRecords)
	}

	// Loading a non-existent config fails
	_, err = configCache.LoadConfig("nonexistent")
	if err == nil {
		t.Error("Expected error for non-existent config")
	}

	// Loading an invalid config file fails
	invalidContent := `invalid yaml content`
	err = os.WriteFile(configFile, []byte(invalidContent), 0644)
	if err != nil {
		t.Fatal(err)
	}

	_, err = configCache.LoadConfig("test")
	if err == nil {
		t.Error("Expected error for invalid config file")
	}
}

func TestConfigCacheGetConfigs(t *testing.T) {
	tempDir := t.TempDir()

	configs := []struct {
		filename string
		content  string
	}{
		{
			"catalog1.yml",
			`
url: "https://api.example.com/shows"
settings:
  enabled: true
`,
		},
		{
			"catalog2.yml",
			`
url: "https://api.other.com/shows"
settings:
  enabled: false
`,
		},
	}

	for _, config := range configs {
		err := os.WriteFile(filepath.Join(tempDir, config.filename), []byte(config.content), 0644)
		if err != nil {
			t.Fatal(err)
		}
	}

	configCache := NewConfigCache(tempDir)
	err := configCache.Run()
	if err != nil {
		t.Fatal(err)
	}

	allConfigs := configCache.GetConfigs()
	if len(allConfigs) != 2 {
		t.Errorf("Expected 2 configs, got %d", len(allConfigs))
	}

	enabledConfigs := configCache.GetEnabledConfigs()
	if len(enabledConfigs) != 1 {
		t.Errorf("Expected 1 enabled config, got %d", len(enabledConfigs))
	}
	if _, ok := enabledConfigs["catalog1"]; !ok {
		t.Error("Expected 'catalog1' in enabled configs")
	}

	// Verify it's a copy (modifying returned map shouldn't affect cache)
	delete(allConfigs, "catalog1")
	if configCache.GetConfigCount() != 2 {
		t.Error("Modifying returned configs map affected the cache")
	}
}

func TestConfigCacheValidateConfigNil(t *testing.T) {
	configCache := NewConfigCache("")
	err := configCache.validateConfig(nil)
	if err == nil {
		t.Error("Expected error for nil sourceConfig, got none")
	}
}

func TestConfigCacheValidateConfigRequiredFields(t *testing.T) {
	configCache := NewConfigCache("")

	sourceConfig := &Config{
		Name: "",
		URL:  "https://api.example.com/shows",
	}
	err := configCache.validateConfig(sourceConfig)
	if err == nil {
		t.Error("Expected error for empty source name, got none")
	}

	sourceConfig.Name = "test-source"
	sourceConfig.URL = ""
	err = configCache.validateConfig(sourceConfig)
	if err == nil {
		t.Error("Expected error for empty URL, got none")
	}
}

func TestConfigCacheValidateConfigNegativeValues(t *testing.T) {
	configCache := NewConfigCache("")

	sourceConfig := &Config{
		Name: "test-source",
		URL:  "https://api.example.com/shows",
	}

	sourceConfig.Settings.RefreshInterval = -1
	err := configCache.validateConfig(sourceConfig)
	if err == nil {
		t.Error("Expected error for negative refresh interval, got none")
	}

	sourceConfig.Settings.RefreshInterval = 3600
	sourceConfig.Settings.MinRecords = -1
	err = configCache.validateConfig(sourceConfig)
	if err == nil {
		t.Error("Expected error for negative min records, got none")
	}

	sourceConfig.Settings.MinRecords = 250
	sourceConfig.Settings.MaxPages = -5
	err = configCache.validateConfig(sourceConfig)
	if err == nil {
		t.Error("Expected error for negative max pages, got none")
	}

	sourceConfig.Settings.MaxPages = 50
	sourceConfig.Settings.Timeout = -1
	err = configCache.validateConfig(sourceConfig)
	if err == nil {
		t.Error("Expected error for negative timeout, got none")
	}
}

func TestConfigCacheGetConfigNotFound(t *testing.T) {
	tempDir := t.TempDir()

	configCache := NewConfigCache(tempDir)
	err := configCache.Run()
	if err != nil {
		t.Fatal(err)
	}

	_, err = configCache.GetConfig("any-source")
	if err == nil {
		t.Error("Expected error for source name in empty cache, got none")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected error message to contain 'not found', got: %v", err)
	}
}
