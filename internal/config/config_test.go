package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

var allEnvVars = []string{
	"HOST", "PORT", "READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT", "ENVIRONMENT",
	"STORE_BACKEND",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE", "SQLITE_PATH",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME",
	"REDIS_ENABLED", "REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE",
	"REDIS_MIN_IDLE_CONNS", "REDIS_MAX_RETRIES", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_WRITE_TIMEOUT",
	"CACHE_ENABLED", "CACHE_ITEM_TTL", "CACHE_LIST_TTL",
	"WORKER_ENABLED", "WORKER_CONCURRENCY", "WORKER_POLL_INTERVAL", "WORKER_QUEUE",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_RPM", "RATE_LIMIT_BURST", "RATE_LIMIT_CLEANUP",
	"CORS_ALLOWED_ORIGINS",
}

func setEnvVars(vars map[string]string) {
	for k, v := range vars {
		os.Setenv(k, v)
	}
}

func clearEnvVars(vars []string) {
	for _, k := range vars {
		os.Unsetenv(k)
	}
}

func withEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	clearEnvVars(allEnvVars)
	setEnvVars(vars)
	t.Cleanup(func() { clearEnvVars(allEnvVars) })
}

func TestLoadConfig_Defaults(t *testing.T) {
	withEnv(t, nil)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error with default config, got: %v", err)
	}

	if config.Server.Host != "localhost" {
		t.Errorf("Expected default host 'localhost', got %s", config.Server.Host)
	}

	if config.Server.Port != "8080" {
		t.Errorf("Expected default port '8080', got %s", config.Server.Port)
	}

	if config.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected default shutdown timeout 10s, got %v", config.Server.ShutdownTimeout)
	}

	if config.Store.Backend != StoreMemory {
		t.Errorf("Expected default store backend 'memory', got %s", config.Store.Backend)
	}

	if config.Database.SQLitePath != "todo.db" {
		t.Errorf("Expected default sqlite path 'todo.db', got %s", config.Database.SQLitePath)
	}

	if config.Database.MaxOpenConns != 25 {
		t.Errorf("Expected default max open conns 25, got %d", config.Database.MaxOpenConns)
	}

	if config.Redis.Enabled {
		t.Error("Expected Redis to be disabled by default")
	}

	if config.Redis.PoolSize != 10 {
		t.Errorf("Expected default Redis pool size 10, got %d", config.Redis.PoolSize)
	}

	if config.Cache.Enabled {
		t.Error("Expected cache to be disabled by default")
	}

	if config.Cache.ItemTTL != 30*time.Minute || config.Cache.ListTTL != 10*time.Minute {
		t.Errorf("Expected cache TTLs 30m/10m, got %v/%v", config.Cache.ItemTTL, config.Cache.ListTTL)
	}

	if config.Worker.Enabled {
		t.Error("Expected worker to be disabled by default")
	}

	if config.Worker.Concurrency != 4 {
		t.Errorf("Expected default worker concurrency 4, got %d", config.Worker.Concurrency)
	}

	if config.Worker.Queue != "todo_events" {
		t.Errorf("Expected default worker queue 'todo_events', got %s", config.Worker.Queue)
	}

	if !config.RateLimit.Enabled {
		t.Error("Expected rate limiting to be enabled by default")
	}

	if config.RateLimit.RequestsPerMin != 100 {
		t.Errorf("Expected default requests per minute 100, got %d", config.RateLimit.RequestsPerMin)
	}

	if !reflect.DeepEqual(config.CORS.AllowedOrigins, []string{"*"}) {
		t.Errorf("Expected default CORS origins [*], got %v", config.CORS.AllowedOrigins)
	}
}

func TestLoadConfig_CustomEnvironment(t *testing.T) {
	withEnv(t, map[string]string{
		"HOST":                 "0.0.0.0",
		"PORT":                 "9000",
		"ENVIRONMENT":          "production",
		"STORE_BACKEND":        "Postgres",
		"DB_HOST":              "db.example.com",
		"DB_PASSWORD":          "secure_password",
		"DB_MAX_OPEN_CONNS":    "50",
		"REDIS_ENABLED":        "true",
		"REDIS_HOST":           "redis.example.com",
		"REDIS_DB":             "1",
		"CACHE_ENABLED":        "true",
		"CACHE_ITEM_TTL":       "5m",
		"WORKER_ENABLED":       "true",
		"WORKER_CONCURRENCY":   "8",
		"WORKER_QUEUE":         "events",
		"RATE_LIMIT_ENABLED":   "false",
		"READ_TIMEOUT":         "45s",
		"SHUTDOWN_TIMEOUT":     "3s",
		"CORS_ALLOWED_ORIGINS": "https://a.example.com, https://b.example.com",
	})

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error with custom config, got: %v", err)
	}

	if config.GetServerAddr() != "0.0.0.0:9000" {
		t.Errorf("Expected server addr '0.0.0.0:9000', got %s", config.GetServerAddr())
	}

	if config.Store.Backend != StorePostgres {
		t.Errorf("Expected store backend 'postgres', got %s", config.Store.Backend)
	}

	if config.Database.MaxOpenConns != 50 {
		t.Errorf("Expected max open conns 50, got %d", config.Database.MaxOpenConns)
	}

	if !config.Redis.Enabled || config.Redis.DB != 1 {
		t.Errorf("Expected Redis enabled on DB 1, got enabled=%v db=%d", config.Redis.Enabled, config.Redis.DB)
	}

	if !config.Cache.Enabled || config.Cache.ItemTTL != 5*time.Minute {
		t.Errorf("Expected cache enabled with 5m item TTL, got enabled=%v ttl=%v", config.Cache.Enabled, config.Cache.ItemTTL)
	}

	if config.Worker.Concurrency != 8 || config.Worker.Queue != "events" {
		t.Errorf("Expected worker concurrency 8 on 'events', got %d on %s", config.Worker.Concurrency, config.Worker.Queue)
	}

	if config.RateLimit.Enabled {
		t.Error("Expected rate limiting to be disabled")
	}

	if config.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Expected read timeout 45s, got %v", config.Server.ReadTimeout)
	}

	if config.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("Expected shutdown timeout 3s, got %v", config.Server.ShutdownTimeout)
	}

	expectedOrigins := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(config.CORS.AllowedOrigins, expectedOrigins) {
		t.Errorf("Expected CORS origins %v, got %v", expectedOrigins, config.CORS.AllowedOrigins)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		hasError bool
		errorMsg string
	}{
		{
			name:     "Unknown store backend",
			envVars:  map[string]string{"STORE_BACKEND": "mongo"},
			hasError: true,
			errorMsg: `unknown store backend "mongo"`,
		},
		{
			name: "Postgres in production without password",
			envVars: map[string]string{
				"ENVIRONMENT":   "production",
				"STORE_BACKEND": "postgres",
			},
			hasError: true,
			errorMsg: "database password is required in production",
		},
		{
			name: "Postgres in production with password",
			envVars: map[string]string{
				"ENVIRONMENT":   "production",
				"STORE_BACKEND": "postgres",
				"DB_PASSWORD":   "secure-password",
			},
		},
		{
			name: "Memory store in production needs no password",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
			},
		},
		{
			name:     "Worker without Redis",
			envVars:  map[string]string{"WORKER_ENABLED": "true"},
			hasError: true,
			errorMsg: "worker requires REDIS_ENABLED",
		},
		{
			name: "Worker with zero concurrency",
			envVars: map[string]string{
				"WORKER_ENABLED":     "true",
				"REDIS_ENABLED":      "true",
				"WORKER_CONCURRENCY": "0",
			},
			hasError: true,
			errorMsg: "worker concurrency must be positive",
		},
		{
			name:     "Cache without Redis stays in memory",
			envVars:  map[string]string{"CACHE_ENABLED": "true"},
			hasError: false,
		},
		{
			name:     "Rate limit with zero rate",
			envVars:  map[string]string{"RATE_LIMIT_RPM": "0"},
			hasError: true,
			errorMsg: "rate limit requests per minute must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnv(t, tt.envVars)

			config, err := LoadConfig()

			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error, but got none")
				} else if err.Error() != tt.errorMsg {
					t.Errorf("Expected error '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				if config == nil {
					t.Error("Expected config to be loaded")
				}
			}
		})
	}
}

func TestConfig_GetDatabaseDSN(t *testing.T) {
	database := DatabaseConfig{
		Host:       "localhost",
		Port:       "5432",
		User:       "testuser",
		Password:   "testpass",
		Name:       "testdb",
		SSLMode:    "require",
		SQLitePath: "/var/lib/todo/todo.db",
	}

	tests := []struct {
		backend  string
		expected string
	}{
		{StorePostgres, "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require"},
		{StoreSQLite, "/var/lib/todo/todo.db"},
		{StoreMemory, ""},
	}

	for _, test := range tests {
		config := &Config{Store: StoreConfig{Backend: test.backend}, Database: database}

		if actual := config.GetDatabaseDSN(); actual != test.expected {
			t.Errorf("For backend '%s', expected DSN '%s', got '%s'", test.backend, test.expected, actual)
		}
	}
}

func TestConfig_GetRedisAddr(t *testing.T) {
	config := &Config{
		Redis: RedisConfig{
			Host: "redis.example.com",
			Port: "6380",
		},
	}

	expected := "redis.example.com:6380"
	actual := config.GetRedisAddr()

	if actual != expected {
		t.Errorf("Expected Redis addr '%s', got '%s'", expected, actual)
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		environment string
		expected    bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
		{"", false},
	}

	for _, test := range tests {
		config := &Config{
			Server: ServerConfig{
				Environment: test.environment,
			},
		}

		actual := config.IsProduction()
		if actual != test.expected {
			t.Errorf("For environment '%s', expected IsProduction() = %v, got %v",
				test.environment, test.expected, actual)
		}
	}
}

func TestGetEnvAsInt(t *testing.T) {
	key := "TEST_INT_VAR"
	defaultValue := 42

	os.Unsetenv(key)
	result := getEnvAsInt(key, defaultValue)
	if result != defaultValue {
		t.Errorf("Expected default value %d, got %d", defaultValue, result)
	}

	os.Setenv(key, "100")
	defer os.Unsetenv(key)

	result = getEnvAsInt(key, defaultValue)
	if result != 100 {
		t.Errorf("Expected env value 100, got %d", result)
	}

	os.Setenv(key, "not-a-number")
	result = getEnvAsInt(key, defaultValue)
	if result != defaultValue {
		t.Errorf("Expected default value %d for invalid int, got %d", defaultValue, result)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	key := "TEST_BOOL_VAR"
	defaultValue := true

	testCases := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"false", false},
		{"1", true},
		{"0", false},
		{"invalid", defaultValue},
	}

	for _, tc := range testCases {
		os.Setenv(key, tc.value)
		result := getEnvAsBool(key, defaultValue)
		if result != tc.expected {
			t.Errorf("For value '%s', expected %v, got %v", tc.value, tc.expected, result)
		}
	}

	os.Unsetenv(key)
}

func TestGetEnvAsDuration(t *testing.T) {
	key := "TEST_DURATION_VAR"
	defaultValue := 30 * time.Second

	os.Setenv(key, "5m")
	defer os.Unsetenv(key)

	if result := getEnvAsDuration(key, defaultValue); result != 5*time.Minute {
		t.Errorf("Expected env value 5m, got %v", result)
	}

	os.Setenv(key, "not-a-duration")
	if result := getEnvAsDuration(key, defaultValue); result != defaultValue {
		t.Errorf("Expected default value %v for invalid duration, got %v", defaultValue, result)
	}
}

func TestGetEnvAsSlice(t *testing.T) {
	key := "TEST_SLICE_VAR"
	defaultValue := []string{"*"}

	testCases := []struct {
		value    string
		expected []string
	}{
		{"", []string{"*"}},
		{"a", []string{"a"}},
		{"a, b ,c", []string{"a", "b", "c"}},
		{" , ", []string{"*"}},
	}

	for _, tc := range testCases {
		os.Setenv(key, tc.value)
		result := getEnvAsSlice(key, defaultValue)
		if !reflect.DeepEqual(result, tc.expected) {
			t.Errorf("For value '%s', expected %v, got %v", tc.value, tc.expected, result)
		}
	}

	os.Unsetenv(key)
}

func BenchmarkLoadConfig(b *testing.B) {
	envVars := map[string]string{
		"HOST":          "0.0.0.0",
		"PORT":          "8080",
		"STORE_BACKEND": "sqlite",
	}
	setEnvVars(envVars)
	defer func() {
		var keys []string
		for k := range envVars {
			keys = append(keys, k)
		}
		clearEnvVars(keys)
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := LoadConfig()
		if err != nil {
			b.Fatalf("Failed to load config: %v", err)
		}
	}
}
