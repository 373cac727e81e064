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
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".codelens/index.db"
	}
	if cfg.Storage.CollectionName == "" {
		cfg.Storage.CollectionName = "codebase"
	}
	if cfg.Storage.CollectionDescription == "" {
		cfg.Storage.CollectionDescription = "Indexed codebase for test generation"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "auto"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-minilm"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.RequestTimeout == 0 {
		cfg.Embedding.RequestTimeout = 30 * time.Second
	}
	if cfg.Indexing.EmbedTimeout == 0 {
		cfg.Indexing.EmbedTimeout = 30 * time.Second
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 5
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
}
