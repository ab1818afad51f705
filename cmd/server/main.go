package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fightcore/internal/api"
	"fightcore/internal/config"
	"fightcore/internal/lobby"
	"fightcore/internal/sim"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	log.Println("================================")
	log.Println(" FIGHTCORE - deterministic match engine")
	log.Println("================================")

	appCfg := config.Load()

	maps, err := config.LoadMapRotation(appCfg.Match.MapRotationPath)
	if err != nil {
		log.Printf("map rotation: %v, falling back to %d built-in map(s)", err, len(maps))
	}

	matchCfg := sim.MatchConfig{
		PlayerCount:          2,
		TickRate:             appCfg.Match.TickRate,
		InitialLives:         appCfg.Match.InitialLives,
		MatchDurationTicks:   appCfg.Match.MatchDurationTicks,
		SuddenDeathStartTick: appCfg.Match.SuddenDeathStartTick,
		StompEnabled:         appCfg.Match.StompEnabled,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lob := lobby.New(ctx, maps, matchCfg, appCfg.Server.MaxRooms)
	srv := api.NewServer(lob, appCfg.Server)

	log.Printf("tick rate %dHz, %d map(s) in rotation, max %d rooms", appCfg.Match.TickRate, len(maps), appCfg.Server.MaxRooms)

	if err := srv.Start(ctx, appCfg.Server.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}

	log.Println("shutting down, waiting for in-progress rooms to conclude")
	if err := lob.Wait(); err != nil {
		log.Printf("lobby wait: %v", err)
	}
	log.Println("shutdown complete")
}
