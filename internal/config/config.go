package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Paths  PathsConfig  `yaml:"paths"`
	RAG    RAGConfig    `yaml:"rag"`
	Embed  LLMConfig    `yaml:"embedding"`
	LLM    LLMConfig    `yaml:"llm"`
	Refine RefineConfig `yaml:"refine"`
	OCR    OCRConfig    `yaml:"ocr"`
}

type PathsConfig struct {
	KnowledgeBase string `yaml:"knowledge_base"`
	Vectorstore   string `yaml:"vectorstore"`
	Uploads       string `yaml:"uploads"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	RetrievalK   int `yaml:"retrieval_k"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai" or "ollama"
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type RefineConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Provider       string `yaml:"provider"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type OCRConfig struct {
	Lang string `yaml:"lang"`
	DPI  int    `yaml:"dpi"`
}

// Default returns the configuration the original deployment shipped with.
func Default() *Config {
	cfg := defaults()
	cfg.applyDefaults()
	return cfg
}

func defaults() *Config {
	return &Config{
		Paths: PathsConfig{
			KnowledgeBase: "./knowledge base main",
			Vectorstore:   "./data/vectorstore",
		},
		RAG: RAGConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			RetrievalK:   4,
		},
		Embed: LLMConfig{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
			Model:    "nomic-embed-text",
		},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Key:      os.Getenv("OPENAI_API_KEY"),
		},
		Refine: RefineConfig{
			Enabled:        false,
			Provider:       "ollama",
			BaseURL:        "http://localhost:11434",
			Model:          "yuiseki/rakutenai-2.0-mini:1.5b-instruct",
			TimeoutSeconds: 10,
		},
		OCR: OCRConfig{
			Lang: "jpn_vert",
			DPI:  300,
		},
	}
}

// Load reads the YAML config at path, filling unset values with defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.applyDefaults()
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := defaults()
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = d.RAG.ChunkSize
	}
	if c.RAG.ChunkOverlap <= 0 {
		c.RAG.ChunkOverlap = d.RAG.ChunkOverlap
	}
	if c.RAG.RetrievalK <= 0 {
		c.RAG.RetrievalK = d.RAG.RetrievalK
	}
	if c.Paths.KnowledgeBase == "" {
		c.Paths.KnowledgeBase = d.Paths.KnowledgeBase
	}
	if c.Paths.Vectorstore == "" {
		c.Paths.Vectorstore = d.Paths.Vectorstore
	}
	if c.Paths.Uploads == "" {
		c.Paths.Uploads = filepath.Join(c.Paths.KnowledgeBase, "uploads")
	}
	if c.Refine.TimeoutSeconds <= 0 {
		c.Refine.TimeoutSeconds = d.Refine.TimeoutSeconds
	}
	if c.OCR.Lang == "" {
		c.OCR.Lang = d.OCR.Lang
	}
	if c.OCR.DPI <= 0 {
		c.OCR.DPI = d.OCR.DPI
	}
}

// KnowledgeDir is the persisted location of the knowledge index.
func (c *Config) KnowledgeDir() string {
	return filepath.Join(c.Paths.Vectorstore, "knowledge")
}

// ConversationDir is the persisted location of the conversation index.
func (c *Config) ConversationDir() string {
	return filepath.Join(c.Paths.Vectorstore, "conversations")
}
