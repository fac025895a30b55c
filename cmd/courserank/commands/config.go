package commands

import (
	"errors"
	"os"
	"time"

	"courserank-backend/lib/configutil"
	"courserank-backend/lib/pagesource"
	"courserank-backend/lib/sqliteutil"
	"courserank-backend/services/catalog"
	"courserank-backend/services/comments"
	"courserank-backend/services/directory"
	"courserank-backend/services/migration"
)

type TargetConfig struct {
	Dsn string `json:"dsn"`
}

type RatingSiteConfig struct {
	ListingUrl string `json:"listing_url"`
	// "{id}" is replaced by the professor id
	ProfessorUrl string `json:"professor_url"`
}

type CatalogConfig struct {
	ApiUrl    string `json:"api_url"`
	SearchUrl string `json:"search_url"`
	// when empty, designations are discovered from the catalog search page
	Designations []string `json:"designations"`
}

type CrawlConfig struct {
	Workers              int     `json:"workers"`
	DirectoryWaitSeconds float64 `json:"directory_wait_seconds"`
	RatingsWaitSeconds   float64 `json:"ratings_wait_seconds"`
}

type Config struct {
	Staging    sqliteutil.Config         `json:"staging"`
	Target     TargetConfig              `json:"target"`
	RatingSite RatingSiteConfig          `json:"rating_site"`
	Catalog    CatalogConfig             `json:"catalog"`
	Browser    pagesource.BrowserOptions `json:"browser"`
	Crawl      CrawlConfig               `json:"crawl"`
	Policy     migration.Policy          `json:"policy"`
}

const (
	defaultStagingFile  = "<dev_state>/staging.db"
	defaultListingUrl   = "https://www.ratemyprofessors.com/search/professors/1143?q=*"
	defaultProfessorUrl = "https://www.ratemyprofessors.com/professor/{id}"
)

func (c Config) withDefaults() Config {
	if c.Staging.File == "" && c.Staging.Url == "" {
		c.Staging.File = defaultStagingFile
	}
	if c.RatingSite.ListingUrl == "" {
		c.RatingSite.ListingUrl = defaultListingUrl
	}
	if c.RatingSite.ProfessorUrl == "" {
		c.RatingSite.ProfessorUrl = defaultProfessorUrl
	}
	if c.Catalog.ApiUrl == "" {
		c.Catalog.ApiUrl = catalog.DefaultApiURL
	}
	if c.Catalog.SearchUrl == "" {
		c.Catalog.SearchUrl = catalog.DefaultSearchURL
	}
	c.Policy = c.Policy.WithDefaults()
	return c
}

// LoadConfig reads the config file (a missing file means all defaults)
// and applies the DATABASE_URL and STAGING_DB environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	configutil.OverrideFromEnv(map[string]*string{
		"DATABASE_URL": &cfg.Target.Dsn,
		"STAGING_DB":   &cfg.Staging.File,
	})
	return cfg.withDefaults(), nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c Config) directoryOptions() directory.Options {
	return directory.Options{
		WaitTimeout: seconds(c.Crawl.DirectoryWaitSeconds),
	}
}

func (c Config) commentsOptions() comments.Options {
	return comments.Options{
		ProfessorURL: c.RatingSite.ProfessorUrl,
		WaitTimeout:  seconds(c.Crawl.RatingsWaitSeconds),
		Workers:      c.Crawl.Workers,
		MaxLevel:     c.Policy.MaxLevel,
	}
}
