package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/courseflow-backend/internal/clients/openai"
	"github.com/yungbote/courseflow-backend/internal/clients/redislock"
	"github.com/yungbote/courseflow-backend/internal/logger"
)

type Clients struct {
	Openai  *openai.Client
	RunLock *redislock.Locker
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	// Redis is optional: without it runs proceed unlocked.
	var runLock *redislock.Locker
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		l, err := redislock.New(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init run lock: %w", err)
		}
		runLock = l
	}

	return Clients{
		Openai:  openaiClient,
		RunLock: runLock,
	}, nil
}
