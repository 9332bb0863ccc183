package config

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

var (
	ErrGitUserNotConfigured = errors.New("git user is not configured: set user.name and user.email in ~/.gitconfig or feedtick config")
)

// Default endpoints and regeneration command. Overridable via the config file.
const (
	DefaultAPIURL     = "https://api.github.com"
	DefaultIndexURL   = "https://pypi.org/pypi"
	DefaultPageURL    = "https://pypi.org/project"
	DefaultOrg        = "conda-forge"
	DefaultBranch     = "master"
	DefaultRecipePath = "recipe/meta.yaml"
)

// Config represents the application configuration
type Config struct {
	GitHub GitHubConfig `yaml:"github"`
	Index  IndexConfig  `yaml:"index"`
	Git    GitConfig    `yaml:"git"`
	Regen  RegenConfig  `yaml:"regen"`
}

// GitHubConfig holds GitHub API settings
type GitHubConfig struct {
	APIURL string `yaml:"api_url"` // REST v3 base URL
	User   string `yaml:"user"`    // acting identity; resolved from the token when empty
	Token  string `yaml:"token"`   // personal access token; flag and GH_TOKEN take precedence
	Org    string `yaml:"org"`     // upstream organization owning the feedstocks
	Branch string `yaml:"branch"`  // default branch of feedstocks and forks
}

// IndexConfig holds upstream package index settings
type IndexConfig struct {
	APIURL  string `yaml:"api_url"`  // JSON API base
	PageURL string `yaml:"page_url"` // human release pages, used by the scrape fallback
}

// GitConfig holds git author settings for regeneration commits
type GitConfig struct {
	User  string `yaml:"user"`
	Email string `yaml:"email"`
}

// RegenConfig holds the external regeneration command
type RegenConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// ConfigPaths returns all possible config file paths in priority order
// 1. $XDG_CONFIG_HOME/feedtick/config.yaml (XDG standard - priority)
// 2. ~/.feedtick/config.yaml (legacy fallback)
func ConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	return []string{
		filepath.Join(xdg.ConfigHome, "feedtick", "config.yaml"),
		filepath.Join(home, ".feedtick", "config.yaml"),
	}, nil
}

// DefaultConfigPath returns the default config file path (XDG standard)
func DefaultConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

// FindConfigPath returns the first existing config file path
// Returns the default path if no config file exists yet
func FindConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	// No config exists, return default (XDG) path for creation
	return paths[0], nil
}

// Load reads configuration from the first available config file
func Load() (*Config, error) {
	configPath, err := FindConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads configuration from a specific file path. A missing file
// yields a default config written to that path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			cfg.applyDefaults()
			if saveErr := cfg.SaveTo(path); saveErr != nil {
				return nil, saveErr
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills empty fields with the built-in defaults
func (c *Config) applyDefaults() {
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = DefaultAPIURL
	}
	if c.GitHub.Org == "" {
		c.GitHub.Org = DefaultOrg
	}
	if c.GitHub.Branch == "" {
		c.GitHub.Branch = DefaultBranch
	}
	if c.Index.APIURL == "" {
		c.Index.APIURL = DefaultIndexURL
	}
	if c.Index.PageURL == "" {
		c.Index.PageURL = DefaultPageURL
	}
	if c.Regen.Command == "" {
		c.Regen.Command = "conda-smithy"
	}
	if len(c.Regen.Args) == 0 {
		c.Regen.Args = []string{"rerender", "--no-check-uptodate"}
	}
}

// Save writes configuration to the default config file
func (c *Config) Save() error {
	configPath, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

// SaveTo writes configuration to a specific file path
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetGitUser returns the git user name and email for regeneration commits.
// It first tries to read from ~/.gitconfig, then falls back to feedtick config.
func (c *Config) GetGitUser() (user, email string, err error) {
	gitconfigPath, err := defaultGitconfigPath()
	if err == nil {
		user, email, err = parseGitconfig(gitconfigPath)
		if err == nil && user != "" && email != "" {
			return user, email, nil
		}
	}

	if c.Git.User != "" && c.Git.Email != "" {
		return c.Git.User, c.Git.Email, nil
	}

	return "", "", ErrGitUserNotConfigured
}

// defaultGitconfigPath returns the default gitconfig file path
func defaultGitconfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gitconfig"), nil
}

// parseGitconfig reads user.name and user.email from a gitconfig file.
// The gitconfig file uses INI format.
func parseGitconfig(path string) (user, email string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	return ParseGitconfigContent(file)
}

// ParseGitconfigContent parses gitconfig content from an io.Reader.
// Exported for testing purposes.
func ParseGitconfigContent(r interface{ Read([]byte) (int, error) }) (user, email string, err error) {
	scanner := bufio.NewScanner(r)
	inUserSection := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section := strings.ToLower(strings.Trim(line, "[]"))
			inUserSection = section == "user"
			continue
		}

		if inUserSection {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(strings.ToLower(parts[0]))
			value := strings.TrimSpace(parts[1])

			switch key {
			case "name":
				user = value
			case "email":
				email = value
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return "", "", err
	}

	return user, email, nil
}
