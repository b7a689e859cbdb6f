package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "8080" {
		t.Fatalf("APIPort = %q, want 8080", cfg.APIPort)
	}
	if cfg.QdrantCollection != "legal_hybrid_v3" {
		t.Fatalf("QdrantCollection = %q, want legal_hybrid_v3", cfg.QdrantCollection)
	}
	if cfg.EmbedDimensions != 1024 {
		t.Fatalf("EmbedDimensions = %d, want 1024", cfg.EmbedDimensions)
	}
	if cfg.RetrievalTopK != 30 || cfg.RerankTopN != 5 {
		t.Fatalf("retrieval knobs = %d/%d, want 30/5", cfg.RetrievalTopK, cfg.RerankTopN)
	}
	if cfg.ParentChunkSize != 2000 || cfg.ChildChunkSize != 512 {
		t.Fatalf("chunk sizes = %d/%d, want 2000/512", cfg.ParentChunkSize, cfg.ChildChunkSize)
	}
	if !cfg.RerankEnabled {
		t.Fatal("RerankEnabled should default to true")
	}
	if cfg.GeminiModel != "gemini-2.5-flash-lite" {
		t.Fatalf("GeminiModel = %q", cfg.GeminiModel)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9000")
	t.Setenv("RETRIEVAL_TOP_K", "50")
	t.Setenv("RERANK_ENABLED", "false")
	t.Setenv("API_RATE_LIMIT_RPS", "12.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "9000" {
		t.Fatalf("APIPort = %q, want 9000", cfg.APIPort)
	}
	if cfg.RetrievalTopK != 50 {
		t.Fatalf("RetrievalTopK = %d, want 50", cfg.RetrievalTopK)
	}
	if cfg.RerankEnabled {
		t.Fatal("RerankEnabled should be false")
	}
	if cfg.APIRateLimitRPS != 12.5 {
		t.Fatalf("APIRateLimitRPS = %v, want 12.5", cfg.APIRateLimitRPS)
	}
}

func TestLoadMalformedEnvFallsBack(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "many")
	t.Setenv("RERANK_ENABLED", "yep")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RetrievalTopK != 30 {
		t.Fatalf("RetrievalTopK = %d, want default 30", cfg.RetrievalTopK)
	}
	if !cfg.RerankEnabled {
		t.Fatal("RerankEnabled should fall back to default true")
	}
}

func TestLoadConfigFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "api_port: \"7070\"\nretrieval_top_k: 40\nqdrant_collection: legal_hybrid_test\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "7070" {
		t.Fatalf("APIPort = %q, file value should win over env", cfg.APIPort)
	}
	if cfg.RetrievalTopK != 40 {
		t.Fatalf("RetrievalTopK = %d, want 40", cfg.RetrievalTopK)
	}
	if cfg.QdrantCollection != "legal_hybrid_test" {
		t.Fatalf("QdrantCollection = %q", cfg.QdrantCollection)
	}
	if cfg.RerankTopN != 5 {
		t.Fatalf("RerankTopN = %d, defaults should survive partial files", cfg.RerankTopN)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
