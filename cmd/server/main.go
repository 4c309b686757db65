package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bookitnow/chat-server/internal/api"
	"github.com/bookitnow/chat-server/internal/config"
	"github.com/bookitnow/chat-server/internal/database"
	"github.com/bookitnow/chat-server/internal/presence"
	"github.com/bookitnow/chat-server/internal/server"
	"github.com/bookitnow/chat-server/internal/stats"
	_ "github.com/lib/pq"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	redisAddr      string
	signingKey     string
	presenceTTL    time.Duration
	allowedOrigins stringSliceFlag
)

func main() {
	logger := log.New(os.Stderr, "[chat] ", log.LstdFlags)

	env, err := config.ParseEnv()
	if err != nil {
		logger.Fatal("config:", err)
	}

	// Flags override the environment.
	flag.StringVar(&addr, "addr", env.ServerAddr, "server address")
	flag.StringVar(&dsn, "dsn", env.DatabaseDSN, "database connection string")
	flag.StringVar(&redisAddr, "redis-addr", env.RedisAddr, "redis address for presence")
	flag.StringVar(&signingKey, "signing-key", env.SigningSecret, "base64 encoded signing key")
	flag.DurationVar(&presenceTTL, "presence-ttl", env.PresenceTTL, "expiry for online presence marks")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	if len(allowedOrigins) == 0 {
		allowedOrigins = env.AllowedOrigins
	}

	cfg, err := config.NewConfig(addr, dsn, redisAddr, signingKey, allowedOrigins, presenceTTL)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.Fatal("db migrate:", err)
	}

	presenceStore := presence.NewRedisStore(cfg.RedisAddr, cfg.PresenceTTL)
	defer presenceStore.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := presenceStore.Ping(pingCtx); err != nil {
		cancelPing()
		logger.Fatal("redis ping:", err)
	}
	cancelPing()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatServer, err := server.NewChatServer(logger, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}

	srv := api.NewChatApp(mux, logger, chatServer, dbConn, presenceStore, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
