package config

// Sources describes the configured ingestion sources (sources.yaml).
type Sources struct {
	RSSFeeds          []SourceRef  `yaml:"rss_feeds"`
	YouTubeChannels   []ChannelRef `yaml:"youtube_channels"`
	MaxItemsPerSource int          `yaml:"max_items_per_source"`
}

// SourceRef identifies one RSS feed.
type SourceRef struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ChannelRef identifies one YouTube channel.
type ChannelRef struct {
	ChannelID string `yaml:"channel_id"`
	Name      string `yaml:"name"`
}

// Taxonomy is the hierarchical category configuration (categories.yaml).
// Groups are ordered as written in the file so classification prompts stay
// stable between runs.
type Taxonomy struct {
	Groups         []TaxonomyGroup `yaml:"taxonomy"`
	Disambiguation []string        `yaml:"disambiguation"`
}

// TaxonomyGroup is a named group of leaf categories.
type TaxonomyGroup struct {
	Group      string     `yaml:"group"`
	Categories []Category `yaml:"categories"`
}

// Category is one leaf category with an optional disambiguation scope.
type Category struct {
	Name  string `yaml:"name"`
	Scope string `yaml:"scope,omitempty"`
}

// CategoryNames returns the flat list of leaf category names in file order.
func (t *Taxonomy) CategoryNames() []string {
	var names []string
	for _, group := range t.Groups {
		for _, category := range group.Categories {
			names = append(names, category.Name)
		}
	}
	return names
}
