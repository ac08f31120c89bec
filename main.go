package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Billy-Davies-2/chat-mock/internal/chat"
	"github.com/Billy-Davies-2/chat-mock/internal/clickhouse"
	"github.com/Billy-Davies-2/chat-mock/internal/config"
	"github.com/Billy-Davies-2/chat-mock/internal/dal"
	grpcserver "github.com/Billy-Davies-2/chat-mock/internal/grpc"
	"github.com/Billy-Davies-2/chat-mock/internal/handlers"
	"github.com/Billy-Davies-2/chat-mock/internal/logger"
	"github.com/Billy-Davies-2/chat-mock/internal/mocks"
	"github.com/Billy-Davies-2/chat-mock/internal/pubsub"
	"github.com/Billy-Davies-2/chat-mock/internal/relay"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// upstream is what every bus backend provides on top of pubsub.Upstream
type upstream interface {
	pubsub.Upstream
	Close()
}

// analytics records message actions and answers reaction counts
type analytics interface {
	relay.ActionRecorder
	handlers.ReactionSource
	Ping(ctx context.Context) error
	Close() error
}

var (
	cfg       *config.Config
	dataStore dal.FixtureDAL
	chClient  analytics
	ps        *pubsub.PubSub
)

func main() {
	logger.Init()
	logger.Info("Starting chat mock service")

	var err error
	cfg, err = config.LoadFromEnv()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dataStore, err = openFixtures(cfg)
	if err != nil {
		logger.Error("Failed to open fixtures", "error", err, "driver", cfg.Fixtures.Driver)
		log.Fatalf("Failed to open fixtures: %v", err)
	}
	defer dataStore.Close()

	client, err := chat.NewMockClient(dataStore, chat.Options{UUID: cfg.Client.UUID})
	if err != nil {
		logger.Error("Failed to create mock client", "error", err)
		log.Fatalf("Failed to create mock client: %v", err)
	}
	logger.Info("Mock client ready", "uuid", client.UUID())

	up, err := openUpstream(cfg)
	if err != nil {
		logger.Error("Failed to initialize event mirror", "error", err, "driver", cfg.Mirror.Driver)
		log.Fatalf("Failed to initialize event mirror: %v", err)
	}
	defer up.Close()
	ps = pubsub.NewWithUpstream(up)
	defer ps.Close()

	chClient, err = openAnalytics(cfg)
	if err != nil {
		logger.Error("Failed to initialize ClickHouse", "error", err, "address", cfg.ClickHouse.Addr)
		log.Fatalf("Failed to initialize ClickHouse: %v", err)
	}
	defer chClient.Close()

	relay.New(ps, chClient).Attach(client)

	grpcServer, err := serveGRPC(cfg.GRPC.Port, client)
	if err != nil {
		logger.Error("Failed to listen for gRPC", "error", err, "port", cfg.GRPC.Port)
		log.Fatalf("Failed to listen for gRPC: %v", err)
	}
	defer grpcServer.Stop()

	mux := http.NewServeMux()
	handlers.NewAPIHandlers(client, ps, chClient).Register(mux)

	mux.HandleFunc("/api/health", healthHandler)
	mux.HandleFunc("/healthz", livenessHandler) // Kubernetes liveness probe
	mux.HandleFunc("/readyz", readinessHandler) // Kubernetes readiness probe

	addr := "0.0.0.0:" + strconv.Itoa(cfg.HTTP.Port)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("Server starting", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("HTTP shutdown did not complete", "error", err)
	}
}

func openFixtures(cfg *config.Config) (dal.FixtureDAL, error) {
	switch cfg.Fixtures.Driver {
	case "memory":
		logger.Info("Using in-memory fixtures")
		return dal.NewMemoryDAL(), nil
	case "yaml":
		logger.Info("Loading fixtures from YAML", "file", cfg.Fixtures.File)
		return dal.NewYAMLDAL(cfg.Fixtures.File)
	case "sqlite":
		logger.Info("Using SQLite fixtures", "file", cfg.Fixtures.SQLiteFile)
		return dal.NewSQLiteDAL(cfg.Fixtures.SQLiteFile)
	case "postgres":
		if cfg.Fixtures.DatabaseURL == "" {
			if cfg.IsDevelopment() {
				return mocks.NewMockPostgresDAL(cfg.Fixtures.SQLiteFile)
			}
			return nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		logger.Info("Connecting to Postgres fixtures")
		return dal.NewPostgresDAL(cfg.Fixtures.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown fixtures driver %q", cfg.Fixtures.Driver)
	}
}

func openUpstream(cfg *config.Config) (upstream, error) {
	m := cfg.Mirror
	switch m.Driver {
	case "mock":
		return pubsub.NewMockNATSPubSub(m.Subject), nil
	case "embedded":
		logger.Info("Starting embedded NATS server for local development")
		embedded, err := pubsub.NewEmbeddedNATSPubSub(pubsub.EmbeddedNATSOptions{
			Subject:    m.Subject,
			StreamName: m.StreamName,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("Embedded NATS server ready", "url", embedded.GetServerURL())
		return embedded, nil
	case "nats":
		return pubsub.NewNATSPubSub(m.NATSURL, m.Subject, m.StreamName)
	case "mqtt":
		return pubsub.NewMQTTPubSub(pubsub.MQTTOptions{
			Broker:      m.MQTTBroker,
			ClientID:    m.MQTTClientID,
			TopicPrefix: m.TopicPrefix,
			QoS:         1,
		})
	default:
		return nil, fmt.Errorf("unknown mirror driver %q", m.Driver)
	}
}

func openAnalytics(cfg *config.Config) (analytics, error) {
	if cfg.IsDevelopment() {
		logger.Info("Using mock ClickHouse for local development (no ClickHouse server required)")
		return mocks.NewMockClickHouseClient(), nil
	}

	ch := cfg.ClickHouse
	client, err := clickhouse.NewClient(ch.Addr, ch.Database, ch.Username, ch.Password)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to ClickHouse", "address", ch.Addr, "database", ch.Database)
	return client, nil
}

func serveGRPC(port int, client *chat.MockClient) (*grpc.Server, error) {
	addr := "0.0.0.0:" + strconv.Itoa(port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	grpcServer := grpc.NewServer()
	grpcserver.RegisterMockClientServer(grpcServer, grpcserver.NewServer(client, ps))

	hs := health.NewServer()
	hs.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)

	go func() {
		logger.Info("gRPC server starting", "address", addr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
		}
	}()
	return grpcServer, nil
}

func checkFixtures() error {
	if dataStore == nil {
		return errors.New("fixtures not configured")
	}
	_, err := dataStore.Users()
	return err
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if err := checkFixtures(); err != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		checks["fixtures"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
	} else {
		checks["fixtures"] = map[string]interface{}{"status": "healthy", "driver": cfg.Fixtures.Driver}
	}

	if chClient != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := chClient.Ping(ctx)
		cancel()
		if err != nil {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			checks["clickhouse"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
		} else {
			checks["clickhouse"] = map[string]interface{}{"status": "healthy"}
		}
	}

	if ps != nil {
		checks["mirror"] = map[string]interface{}{
			"status":      "healthy",
			"driver":      cfg.Mirror.Driver,
			"subscribers": ps.SubscriberCount(),
		}
	}

	writeStatus(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// livenessHandler returns 200 while the process runs; dependencies are not checked
func livenessHandler(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// readinessHandler returns 200 once the fixture store answers
func readinessHandler(w http.ResponseWriter, r *http.Request) {
	if err := checkFixtures(); err != nil {
		writeStatus(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "not_ready",
			"reason":    "fixtures_unavailable",
			"timestamp": time.Now().Unix(),
		})
		return
	}

	writeStatus(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}

func writeStatus(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

var (
	_ analytics = (*clickhouse.Client)(nil)
	_ analytics = (*mocks.MockClickHouseClient)(nil)
)
