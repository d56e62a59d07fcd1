package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orghierarchy/src/domain"
	"orghierarchy/src/domain/entities"
)

// BranchService é o que os handlers precisam do serviço de hierarquia.
type BranchService interface {
	ListForest(ctx context.Context, caller domain.CallerContext) ([]*domain.TreeNode, error)
	ListSubtree(ctx context.Context, caller domain.CallerContext, rootID string) (*domain.TreeNode, error)
	GetByID(ctx context.Context, caller domain.CallerContext, id string) (*entities.Branch, error)
	List(ctx context.Context, caller domain.CallerContext, page int, pageSize int) (*domain.BranchPage, error)
	Create(ctx context.Context, caller domain.CallerContext, req domain.CreateBranchRequest) (*entities.Branch, error)
	Edit(ctx context.Context, caller domain.CallerContext, req domain.EditBranchRequest) (*entities.Branch, error)
	Block(ctx context.Context, caller domain.CallerContext, id string) (*entities.Branch, error)
	Unblock(ctx context.Context, caller domain.CallerContext, id string) (*entities.Branch, error)
	Delete(ctx context.Context, caller domain.CallerContext, id string) error
	HealthCheck(ctx context.Context) error
}

type ServerOptions struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// Server representa o servidor HTTP da API
type Server struct {
	logger        *slog.Logger
	server        *http.Server
	router        *gin.Engine
	port          int
	tokenParser   *TokenParser
	branchService BranchService
}

// NewServer cria uma nova instância do servidor
func NewServer(
	logger *slog.Logger,
	options ServerOptions,
	tokenParser *TokenParser,
	branchService BranchService,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		logger:        logger,
		router:        gin.New(),
		port:          options.Port,
		tokenParser:   tokenParser,
		branchService: branchService,
	}

	server.router.Use(gin.Recovery(), server.requestLogger(), cors.New(corsConfig(options.AllowedOrigins)))

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", options.Port),
		Handler:      server.router,
		ReadTimeout:  options.ReadTimeout,
		WriteTimeout: options.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	server.registerRoutes()

	return server
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.Health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	branches := s.router.Group("/v1/branches", s.authenticate())

	// Rotas de Leitura
	branches.GET("", s.ListBranches)
	branches.GET("/tree", s.GetForest)
	branches.GET("/:id", s.GetBranch)
	branches.GET("/:id/tree", s.GetSubtree)

	// Rotas de Escrita
	branches.POST("", s.CreateBranch)
	branches.PUT("/:id", s.EditBranch)
	branches.PATCH("/:id/block", s.BlockBranch)
	branches.PATCH("/:id/unblock", s.UnblockBranch)
	branches.DELETE("/:id", s.DeleteBranch)
}

// Handler expõe o roteador para testes com httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start inicia o servidor HTTP
func (s *Server) Start() error {
	s.logger.Info("Server started", "port", s.port)

	return s.server.ListenAndServe()
}

// Shutdown encerra o servidor HTTP de forma graciosa
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func corsConfig(allowedOrigins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
	}

	return config
}
