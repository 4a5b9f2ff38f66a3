package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Mongo.URI == "" {
		cfg.Mongo.URI = "mongodb://localhost:27017"
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "arxiv_papers"
	}
	if cfg.Mongo.Collection == "" {
		cfg.Mongo.Collection = "papers_metadata"
	}
	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = "http://localhost:11434"
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = "mistral"
	}
	if cfg.Pipeline.BatchLimit == 0 {
		cfg.Pipeline.BatchLimit = 10
	}
	if cfg.Pipeline.Interval == 0 {
		cfg.Pipeline.Interval = time.Hour
	}
	if cfg.Pipeline.PromptBudget == 0 {
		cfg.Pipeline.PromptBudget = 8000
	}
	if cfg.Pipeline.RelevanceThreshold == 0 {
		cfg.Pipeline.RelevanceThreshold = 6.0
	}
	if cfg.Fetch.ListingURL == "" {
		cfg.Fetch.ListingURL = "https://arxiv.org/list/cs.AI/recent"
	}
	if cfg.Fetch.Limit == 0 {
		cfg.Fetch.Limit = 20
	}
}
