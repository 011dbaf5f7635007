package server

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/ember/internal/cluster"
	"github.com/agenthands/ember/internal/config"
	"github.com/agenthands/ember/internal/journal"
	"github.com/agenthands/ember/internal/llm"
	"github.com/agenthands/ember/internal/prompt"
	"github.com/agenthands/ember/internal/reflection"
	"github.com/agenthands/ember/internal/store"
)

type Server struct {
	Config      *config.Config
	Pipeline    *journal.Pipeline
	Reflections *reflection.Service
	Cluster     *cluster.Client
	Store       *store.Store
	Prompts     *prompt.Loader
}

func NewServer() *Server {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Could not load %s: %v. Using defaults with env overrides.", cfgPath, err)
		cfg = config.Default()
	}

	// Env vars win over file config.
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("CLUSTER_BASE_URL"); v != "" {
		cfg.Cluster.BaseURL = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("PROMPTS_DIR"); v != "" {
		cfg.Prompts.Dir = v
	}

	srv := &Server{
		Config:  cfg,
		Prompts: prompt.NewLoader(cfg.Prompts.Dir),
	}

	// A missing credential degrades the AI surfaces to request-time 500s
	// rather than refusing to start; the store and cluster client still work.
	needsKey := strings.ToLower(cfg.LLM.Provider) != "ollama"
	if needsKey && cfg.LLM.APIKey == "" {
		log.Printf("Warning: no LLM API key configured; processing endpoints will return errors")
	} else {
		client, err := llm.NewClient(context.Background(), cfg.LLM)
		if err != nil {
			log.Fatalf("Failed to initialize LLM client: %v", err)
		}
		entries := journal.NewEntryGenerator(client, srv.Prompts)
		memories := journal.NewMemoryExtractor(client, srv.Prompts, journal.NoopPersonGoalExtractor{}, cfg.LLM.ThinkingBudget)
		srv.Pipeline = journal.NewPipeline(entries, memories, cfg.Pipeline.Concurrency, cfg.Pipeline.DayLimit)
		srv.Reflections = reflection.NewService(client, srv.Prompts)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	srv.Store = st

	if cfg.Cluster.BaseURL != "" {
		srv.Cluster = cluster.NewClient(cfg.Cluster.BaseURL)
	}

	return srv
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/api/process", s.ProcessConversations)

	r.POST("/api/reflection", s.ReflectionTurn(reflection.EmotionalTurn))
	r.POST("/api/reflection/initial", s.ReflectionTurn(reflection.EmotionalInitial))
	r.POST("/api/shadow-reflection", s.ReflectionTurn(reflection.ShadowTurn))
	r.POST("/api/shadow-reflection/initial", s.ReflectionTurn(reflection.ShadowInitial))
	r.POST("/api/cbt-reflection", s.ReflectionTurn(reflection.CBTTurn))

	r.POST("/api/themes/cluster", s.ClusterThemes)

	r.POST("/api/snapshot", s.SaveSnapshot)
	r.GET("/api/snapshot", s.GetSnapshot)
	r.DELETE("/api/snapshot", s.ClearSnapshot)

	r.POST("/api/reflections", s.SaveReflectionSession)
	r.GET("/api/reflections", s.ListReflectionSessions)
	r.GET("/api/reflections/:id", s.GetReflectionSession)

	return r
}
