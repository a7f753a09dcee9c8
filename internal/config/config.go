// Package config reads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/renderinc/notion-architect/internal/llm"
)

// Config holds every setting the commands read from the environment.
type Config struct {
	DataDir string

	NotionToken   string // NOTION_KEY, or the token file
	NotionPageID  string // NOTION_PAGE_ID: parent of generated pages
	NotionVersion string // NOTION_VERSION
	NotionBaseURL string // NOTION_BASE_URL

	Provider string // LLM_PROVIDER
	BaseURL  string // LLM_BASE_URL
	Model    string // LLM_MODEL
	APIKey   string // LLM_API_KEY, then OPENAI_API_KEY

	LogLevel string // LOG_LEVEL
}

// DefaultTokenFile is read when NOTION_KEY is unset.
const DefaultTokenFile = "./token"

// Load reads the environment. tokenFile may be empty to skip the file
// fallback.
func Load(dataDir, tokenFile string) *Config {
	c := &Config{
		DataDir:       dataDir,
		NotionToken:   os.Getenv("NOTION_KEY"),
		NotionPageID:  os.Getenv("NOTION_PAGE_ID"),
		NotionVersion: os.Getenv("NOTION_VERSION"),
		NotionBaseURL: os.Getenv("NOTION_BASE_URL"),
		Provider:      os.Getenv("LLM_PROVIDER"),
		BaseURL:       os.Getenv("LLM_BASE_URL"),
		Model:         os.Getenv("LLM_MODEL"),
		APIKey:        os.Getenv("LLM_API_KEY"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Provider == "" {
		c.Provider = "ollama"
	}
	if c.NotionToken == "" && tokenFile != "" {
		if data, err := os.ReadFile(tokenFile); err == nil {
			c.NotionToken = strings.TrimSpace(string(data))
		}
	}
	return c
}

// DBPath is the SQLite database inside the data directory.
func (c *Config) DBPath() string { return filepath.Join(c.DataDir, "architect.db") }

// IndexPath is the example index inside the data directory.
func (c *Config) IndexPath() string { return filepath.Join(c.DataDir, "bleve") }

// Requirement is a group of settings a command needs.
type Requirement int

const (
	// Notion needs an API token.
	Notion Requirement = iota
	// Parent needs the page new pages are created under.
	Parent
	// LLM needs a usable generation provider.
	LLM
)

// Validate checks the settings behind every requirement and reports all
// that are missing.
func (c *Config) Validate(reqs ...Requirement) error {
	var errs []error
	for _, r := range reqs {
		switch r {
		case Notion:
			if c.NotionToken == "" {
				errs = append(errs, fmt.Errorf("NOTION_KEY environment variable or %s file required", DefaultTokenFile))
			}
		case Parent:
			if c.NotionPageID == "" {
				errs = append(errs, errors.New("NOTION_PAGE_ID environment variable required"))
			}
		case LLM:
			switch c.Provider {
			case "ollama", "lmstudio":
			case "openai":
				if c.APIKey == "" && (c.BaseURL == "" || c.BaseURL == llm.DefaultURL("openai")) {
					errs = append(errs, errors.New("LLM_API_KEY or OPENAI_API_KEY required for the openai provider"))
				}
			case "replay":
				if c.BaseURL == "" {
					errs = append(errs, errors.New("LLM_BASE_URL must name the recording file or directory for the replay provider"))
				}
			default:
				errs = append(errs, fmt.Errorf("unsupported LLM_PROVIDER %q (supported: ollama, openai, lmstudio, replay)", c.Provider))
			}
		}
	}
	return errors.Join(errs...)
}
