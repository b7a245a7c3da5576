package main

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"strings"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard-api/api"
	"taskboard-api/config"
	"taskboard-api/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := log.New()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("invalid log level %q, using info", cfg.LogLevel)
	}

	var rc *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			parts := strings.Split(cfg.RedisURL, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		rc = redis.NewClient(redisOpts)
	}

	var store api.Store
	if cfg.DemoMode {
		mem := storage.NewMemory()
		users, err := storage.SeedDemo(mem)
		if err != nil {
			log.Fatalf("seed demo data: %v", err)
		}
		logger.Infof("demo mode: %d accounts seeded, password %q", len(users), storage.DemoPassword)
		store = mem
	} else {
		sqlStore, err := storage.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		if err := sqlStore.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("schema: %v", err)
		}
		store = sqlStore
	}
	if rc != nil {
		store = storage.NewCache(store, rc, cfg.CacheTTL)
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		// Demo mode without a configured secret gets an ephemeral one;
		// tokens die with the process, like the in-memory data.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			log.Fatalf("generate demo secret: %v", err)
		}
		secret = []byte(hex.EncodeToString(buf))
	}

	var revoker api.Revoker
	if rc != nil {
		revoker = api.NewRedisRevoker(rc)
	}
	auth := api.NewAuth(secret, "taskboard-api", cfg.TokenTTL, revoker)
	if cfg.JWKSURL != "" {
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = auth.WithJWKS(jwks, cfg.JWKSAudience, cfg.JWKSIssuer)
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(api.RequestLogger(logger))

	api.Register(e, store, auth, logger)

	e.Logger.Fatal(e.Start(cfg.ListenAddr))
}
