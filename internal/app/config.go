package app

import (
	"strings"

	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/utils"
)

type Config struct {
	JWTSecretKey string
	AllowOrigins []string
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	origins := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log)
	var allowOrigins []string
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			allowOrigins = append(allowOrigins, trimmed)
		}
	}
	return Config{
		JWTSecretKey: jwtSecretKey,
		AllowOrigins: allowOrigins,
	}
}
