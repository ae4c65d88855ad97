package feed

// Literature feed model

type Feed struct {
	ID           string
	Title        string
	Link         string
	Updated      Timestamp
	TotalResults int // opensearch:totalResults as reported by the provider
	ItemsPerPage int
	StartIndex   int
	Entries      []Entry
}

type Entry struct {
	ID              string
	Title           string
	Summary         string
	Published       Timestamp
	Updated         Timestamp
	DOI             string
	JournalRef      string
	PrimaryCategory string
	Comment         string
	Categories      []string
	Links           []string
	Authors         []Author
}

type Author struct {
	Name        string
	Affiliation string
}

// FeedParams and EntryParams carry unvalidated values into NewFeed/NewEntry.

type FeedParams struct {
	ID           string
	Title        string
	Link         string
	Updated      Timestamp
	TotalResults int
	ItemsPerPage int
	StartIndex   int
	Entries      []Entry
}

type EntryParams struct {
	ID              string
	Title           string
	Summary         string
	Published       Timestamp
	Updated         Timestamp
	DOI             string
	JournalRef      string
	PrimaryCategory string
	Comment         string
	Categories      []string
	Links           []string
	Authors         []Author
}

// Source configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled         bool   `yaml:"enabled"`
	Template        string `yaml:"template"`
	PageSize        int    `yaml:"page_size"`        // max_results per request
	Timeout         int    `yaml:"timeout"`          // seconds
	RefreshInterval int    `yaml:"refresh_interval"` // seconds a rendered page stays fresh
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
