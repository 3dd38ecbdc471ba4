package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/miniquinox/billsync/internal/log"
	"github.com/miniquinox/billsync/pkg/utils"
)

const AppEnvKey = "APP_ENV"

// devLikeEnvs are the APP_ENV values where --auto-migrate may run. Unset counts.
var devLikeEnvs = map[string]struct{}{
	"":            {},
	"dev":         {},
	"development": {},
	"local":       {},
	"test":        {},
	"testing":     {},
}

// InitializeEnvFile loads ENV_FILE (comma separated, default .env) when
// present. SKIP_DOTENV=true disables it. Variables already set win.
func InitializeEnvFile(logger *log.Logger) {
	if utils.GetEnvBool("SKIP_DOTENV", false) {
		logger.Info("Skipping .env file load (SKIP_DOTENV=true)")
		return
	}

	files := envFiles(utils.GetEnvTrimmed("ENV_FILE"))
	if err := godotenv.Load(files...); err != nil {
		logger.Warn("No .env file found or failed to load it", "files", files, "error", err.Error())
		return
	}

	logger.Info("Environment variables loaded from env files", "files", files)
}

func envFiles(raw string) []string {
	var files []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return []string{".env"}
	}
	return files
}

func GetValueFromEnvironmentVariable(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func GetAppEnv() string {
	return strings.ToLower(strings.TrimSpace(os.Getenv(AppEnvKey)))
}

func ValidateAutoMigrateAllowed(appEnv string) error {
	env := strings.ToLower(strings.TrimSpace(appEnv))
	if _, ok := devLikeEnvs[env]; ok {
		return nil
	}

	allowed := make([]string, 0, len(devLikeEnvs))
	for e := range devLikeEnvs {
		allowed = append(allowed, fmt.Sprintf("%q", e))
	}
	sort.Strings(allowed)

	return fmt.Errorf("--auto-migrate is not allowed when %s=%q (allowed: %s)", AppEnvKey, env, strings.Join(allowed, ", "))
}
