package cli

import (
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"

	"github.com/injunweb/injunctl/internal/domain"
)

// loadInjunwebEnvFromDotEnv copies INJUNWEB_* settings from a dotenv file
// into the process environment. Variables already set win.
func loadInjunwebEnvFromDotEnv(path string) {
	values, err := godotenv.Read(path)
	if err != nil {
		return
	}
	for key, value := range values {
		if !strings.HasPrefix(key, "INJUNWEB_") {
			continue
		}
		if existing := strings.TrimSpace(os.Getenv(key)); existing != "" {
			continue
		}
		_ = os.Setenv(key, value)
	}
}

// readEnvFile parses a dotenv file into environment variables sorted by
// key.
func readEnvFile(path string) ([]domain.EnvVar, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]domain.EnvVar, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.EnvVar{Key: k, Value: values[k]})
	}
	return out, nil
}

// parseAssignments splits KEY=VALUE arguments. The value may be empty or
// contain further '=' characters.
func parseAssignments(args []string) ([]domain.EnvVar, error) {
	out := make([]domain.EnvVar, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, invalidf("expected KEY=VALUE, got %q", arg)
		}
		out = append(out, domain.EnvVar{Key: key, Value: value})
	}
	return out, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
