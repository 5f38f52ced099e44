package file

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Settings is the full configuration surface, persisted as TOML.
type Settings struct {
	Chunker   ChunkerSettings   `toml:"chunker"`
	Retrieval RetrievalSettings `toml:"retrieval"`
	Cache     CacheSettings     `toml:"cache"`
	Tokens    TokenSettings     `toml:"tokens"`
	Adapters  AdapterSettings   `toml:"adapters"`
	Generator GeneratorSettings `toml:"generator"`
}

// ChunkerSettings parameterise text splitting.
type ChunkerSettings struct {
	MaxChunkChars int `toml:"max_chunk_chars"`
	OverlapChars  int `toml:"overlap_chars"`
	MinChunkChars int `toml:"min_chunk_chars"`
}

// RetrievalSettings parameterise retrieval and reranking.
type RetrievalSettings struct {
	TopM         int  `toml:"top_m"`
	RerankK      int  `toml:"rerank_k"`
	UseLLM       bool `toml:"use_llm"`
	UseSynonyms  bool `toml:"use_synonyms"`
	SynonymLimit int  `toml:"synonym_limit"`
}

// CacheSettings bound the index cache.
type CacheSettings struct {
	MaxEntries       int `toml:"max_entries"`
	MaxCharsPerEntry int `toml:"max_chars_per_entry"`
}

// TokenSettings parameterise the prompt budget.
type TokenSettings struct {
	MaxTokens      int `toml:"max_tokens"`
	PromptOverhead int `toml:"prompt_overhead"`
	AnswerReserve  int `toml:"answer_reserve"`
	CharsPerToken  int `toml:"chars_per_token"`
}

// AdapterSettings hold per-corpus adapter options.
type AdapterSettings struct {
	History HistorySettings `toml:"history"`
	Page    PageSettings    `toml:"page"`
}

// HistorySettings bound the history adapter.
type HistorySettings struct {
	Days       int `toml:"days"`
	MaxResults int `toml:"max_results"`
}

// PageSettings configure page capture.
type PageSettings struct {
	CaptureDepth int `toml:"capture_depth"`
}

// GeneratorSettings configure the model backend.
type GeneratorSettings struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		Chunker:   ChunkerSettings{MaxChunkChars: 4000, OverlapChars: 0, MinChunkChars: 200},
		Retrieval: RetrievalSettings{TopM: 12, RerankK: 5, UseLLM: true, UseSynonyms: true, SynonymLimit: 6},
		Cache:     CacheSettings{MaxEntries: 16, MaxCharsPerEntry: 2_000_000},
		Tokens:    TokenSettings{MaxTokens: 4096, PromptOverhead: 256, AnswerReserve: 1024, CharsPerToken: 4},
		Adapters: AdapterSettings{
			History: HistorySettings{Days: 30, MaxResults: 200},
			Page:    PageSettings{CaptureDepth: 1},
		},
		Generator: GeneratorSettings{BaseURL: "http://localhost:11434", Model: "llama3.2", TimeoutSeconds: 120},
	}
}

// Store persists Settings in a TOML file under the config directory.
type Store struct {
	mu       sync.RWMutex
	filePath string
	settings Settings
}

// NewStore creates a TOML-backed settings store.
// If configDir is empty, defaults to ~/.pagelens/config.toml.
func NewStore(configDir string) (*Store, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".pagelens")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &Store{
		filePath: filepath.Join(configDir, "config.toml"),
		settings: DefaultSettings(),
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update applies fn to the settings and persists the result.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.settings)
	normalise(&s.settings)
	return s.save()
}

// Save persists the current settings to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes settings to the TOML file (caller must hold lock).
func (s *Store) save() error {
	data, err := toml.Marshal(s.settings)
	if err != nil {
		return err
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads settings from the TOML file. Fields absent from the file
// keep their defaults.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file yet, start with defaults
			s.settings = DefaultSettings()
			return nil
		}
		return err
	}

	loaded := DefaultSettings()
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}

	normalise(&loaded)
	s.settings = loaded
	return nil
}

// normalise clamps settings to usable values.
func normalise(s *Settings) {
	def := DefaultSettings()
	if s.Chunker.MaxChunkChars <= 0 {
		s.Chunker.MaxChunkChars = def.Chunker.MaxChunkChars
	}
	if s.Chunker.OverlapChars < 0 {
		s.Chunker.OverlapChars = 0
	}
	if s.Chunker.OverlapChars >= s.Chunker.MaxChunkChars {
		s.Chunker.OverlapChars = s.Chunker.MaxChunkChars / 4
	}
	if s.Chunker.MinChunkChars < 0 {
		s.Chunker.MinChunkChars = 0
	}
	if s.Retrieval.TopM <= 0 {
		s.Retrieval.TopM = def.Retrieval.TopM
	}
	if s.Retrieval.RerankK <= 0 || s.Retrieval.RerankK > s.Retrieval.TopM {
		s.Retrieval.RerankK = min(def.Retrieval.RerankK, s.Retrieval.TopM)
	}
	if s.Retrieval.SynonymLimit < 0 {
		s.Retrieval.SynonymLimit = 0
	}
	if s.Cache.MaxEntries <= 0 {
		s.Cache.MaxEntries = def.Cache.MaxEntries
	}
	if s.Cache.MaxCharsPerEntry <= 0 {
		s.Cache.MaxCharsPerEntry = def.Cache.MaxCharsPerEntry
	}
	if s.Tokens.MaxTokens <= 0 {
		s.Tokens.MaxTokens = def.Tokens.MaxTokens
	}
	if s.Tokens.CharsPerToken <= 0 {
		s.Tokens.CharsPerToken = def.Tokens.CharsPerToken
	}
	if s.Adapters.History.Days <= 0 {
		s.Adapters.History.Days = def.Adapters.History.Days
	}
	if s.Adapters.History.MaxResults <= 0 {
		s.Adapters.History.MaxResults = def.Adapters.History.MaxResults
	}
	if s.Adapters.Page.CaptureDepth < 0 {
		s.Adapters.Page.CaptureDepth = 0
	}
	if s.Generator.BaseURL == "" {
		s.Generator.BaseURL = def.Generator.BaseURL
	}
	if s.Generator.Model == "" {
		s.Generator.Model = def.Generator.Model
	}
	if s.Generator.TimeoutSeconds <= 0 {
		s.Generator.TimeoutSeconds = def.Generator.TimeoutSeconds
	}
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.filePath
}
