// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"secureauth-service/internal/audit"
	"secureauth-service/internal/authflow"
	"secureauth-service/internal/backend"
	"secureauth-service/internal/biometric"
	"secureauth-service/internal/config"
	"secureauth-service/internal/db"
	"secureauth-service/internal/domain/security"
	authHandler "secureauth-service/internal/handlers/auth"
	securityHandler "secureauth-service/internal/handlers/security"
	wsHandler "secureauth-service/internal/handlers/websocket"
	"secureauth-service/internal/middleware"
	"secureauth-service/internal/pkg/geo"
	"secureauth-service/internal/pkg/jwt"
	"secureauth-service/internal/service/login"
	"secureauth-service/internal/store"
	"secureauth-service/internal/websocket"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.Default()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	s.logger = logger

	// ----- Credential store backend -----
	backing, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	creds := store.NewCredentialStore(backing, logger)

	// ----- Push hub -----
	hub := websocket.NewHub(logger)
	go hub.Run()

	// ----- Audit trail -----
	trail := audit.NewTrail(s.cfg.AuditRetention, logger).WithPublisher(hub)
	if s.cfg.GeoIPPath != "" {
		resolver, err := geo.NewResolver(s.cfg.GeoIPPath)
		if err != nil {
			logger.Warn("geoip database unavailable, events will not be geolocated", zap.Error(err))
		} else {
			trail = trail.WithResolver(resolver)
		}
	}
	creds.OnCorrupt(func(kind store.Kind) {
		trail.Record(security.EventStorageCorrupt, map[string]interface{}{"kind": string(kind)}, "")
	})

	// ----- Token manager and backend -----
	tokens := jwt.NewManager(s.cfg.JWT)
	authBackend, err := backend.NewSimulatedBackend(backend.DefaultSeeds, s.cfg.BackendLatency, tokens, logger)
	if err != nil {
		return fmt.Errorf("failed to build simulated backend: %w", err)
	}

	// ----- Biometric provider -----
	provider := biometric.NewProvider(
		biometric.NewSimulatedPlatform(),
		creds,
		biometric.Config{
			RPID:      s.cfg.RPID,
			RPName:    s.cfg.RPName,
			UserAgent: s.cfg.DeviceUA,
			Platform:  s.cfg.DevicePlatform,
		},
		logger,
	)

	// ----- Flow machine and login service -----
	machine := authflow.NewMachine(authBackend, creds, provider, trail, s.cfg.CallTimeout, logger)
	if machine.Restore(ctx) {
		logger.Info("restored persisted session at startup")
	}

	loginService := login.NewService(machine, provider, &hubNotifier{hub: hub}, logger)

	// ----- Storage change feed -> push hub -----
	go s.bridgeStorageChanges(ctx, creds, hub)

	// ----- Handlers -----
	authHandlerInst := authHandler.NewAuthHandler(loginService, provider, trail, hub, logger)
	securityHandlerInst := securityHandler.NewSecurityHandler(trail, logger)
	wsHandlerInst := wsHandler.NewWebSocketHandler(hub, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	s.engine.Use(middleware.RecoveryMiddleware(logger))

	// ----- Router -----
	handlers := &Handlers{
		AuthHandler:     authHandlerInst,
		SecurityHandler: securityHandlerInst,
		WSHandler:       wsHandlerInst,
		AuthMiddleware:  authMiddleware,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	log.Printf("server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}

// openStore builds the persistent store named by STORE_DRIVER.
func (s *Server) openStore(ctx context.Context) (store.PersistentStore, error) {
	switch s.cfg.StoreDriver {
	case "", "memory":
		return store.NewMemoryStore(), nil

	case "file":
		fs, err := store.NewFileStore(s.cfg.StoreFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return fs, nil

	case "redis":
		client, err := db.NewRedisClient(db.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPass,
		})
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(client, ""), nil

	case "postgres":
		pool, err := db.ConnectPostgres(ctx, s.cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(ctx, pool)

	default:
		return nil, fmt.Errorf("unknown store driver %q", s.cfg.StoreDriver)
	}
}

// bridgeStorageChanges forwards credential-store changes to the push hub
// so other sessions can resync.
func (s *Server) bridgeStorageChanges(ctx context.Context, creds *store.CredentialStore, hub *websocket.Hub) {
	changes, err := creds.Watch(ctx)
	if err != nil {
		s.logger.Warn("storage change feed unavailable", zap.Error(err))
		return
	}
	for change := range changes {
		hub.PublishStorageChange(change.Key)
	}
}

// hubNotifier routes login notifications onto the push hub.
type hubNotifier struct {
	hub *websocket.Hub
}

func (n *hubNotifier) Notify(level login.Level, message string) {
	n.hub.PublishNotification(string(level), message)
}
