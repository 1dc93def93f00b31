package main

import (
	"chatrelay/internal/config"
	"chatrelay/internal/db"
	clog "chatrelay/internal/log"
	"chatrelay/internal/relay"
	"chatrelay/internal/server"
	"chatrelay/internal/store"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env 可选，容器环境直接注入环境变量。
	_ = godotenv.Load()

	cfg := config.Load()
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validate")
	}

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	st := store.NewGormStore(gdb)
	r := relay.New(st)
	engine := server.SetupRouter(cfg, gdb, st, r)
	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := engine.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
