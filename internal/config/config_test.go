package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// DatabaseConfig.GetDSN
// ---------------------------------------------------------------------------

func TestGetDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "standard config",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "console",
				Password: "secret",
				Name:     "admin_console",
				SSLMode:  "require",
			},
			want: "host=localhost port=5432 user=console password=secret dbname=admin_console sslmode=require",
		},
		{
			name: "empty password",
			cfg: DatabaseConfig{
				Host:    "db.example.com",
				Port:    5433,
				User:    "user",
				Name:    "dbname",
				SSLMode: "disable",
			},
			want: "host=db.example.com port=5433 user=user password= dbname=dbname sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.GetDSN()
			if got != tt.want {
				t.Errorf("GetDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetAddress(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{"default", ServerConfig{Host: "0.0.0.0", Port: 8080}, "0.0.0.0:8080"},
		{"localhost", ServerConfig{Host: "localhost", Port: 3000}, "localhost:3000"},
		{"empty host", ServerConfig{Host: "", Port: 8080}, ":8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.GetAddress()
			if got != tt.want {
				t.Errorf("GetAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Config.Validate
// ---------------------------------------------------------------------------

func minimalValidConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Host: "localhost",
			Name: "admin_console",
			User: "console",
		},
		Storage: StorageConfig{
			DefaultBackend: "local",
			Namespace:      "promo",
			MaxImageBytes:  DefaultMaxImageBytes,
			Local:          LocalStorageConfig{BasePath: "./storage"},
		},
		Admin:   AdminConfig{Email: "root@example.com", Password: "hunter2"},
		Session: SessionConfig{CookieName: "admin_auth"},
		Logging: LoggingConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid minimal config passes", func(t *testing.T) {
		if err := minimalValidConfig().Validate(); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})

	t.Run("password hash alone is enough", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Admin.Password = ""
		cfg.Admin.PasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"invalid server port 0", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"invalid server port 70000", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"missing base_url", func(c *Config) { c.Server.BaseURL = "" }, "server.base_url"},
		{"missing database host", func(c *Config) { c.Database.Host = "" }, "database.host"},
		{"missing database name", func(c *Config) { c.Database.Name = "" }, "database.name"},
		{"missing database user", func(c *Config) { c.Database.User = "" }, "database.user"},
		{"missing admin email", func(c *Config) { c.Admin.Email = "" }, "admin.email"},
		{"missing admin password", func(c *Config) { c.Admin.Password = "" }, "admin.password"},
		{"missing cookie name", func(c *Config) { c.Session.CookieName = "" }, "session.cookie_name"},
		{"negative session ttl", func(c *Config) { c.Session.TTL = -time.Second }, "session.ttl"},
		{"missing namespace", func(c *Config) { c.Storage.Namespace = "" }, "storage.namespace"},
		{"zero image limit", func(c *Config) { c.Storage.MaxImageBytes = 0 }, "max_image_bytes"},
		{"unknown backend", func(c *Config) { c.Storage.DefaultBackend = "ftp" }, "invalid storage backend"},
		{"local without base path", func(c *Config) { c.Storage.Local.BasePath = "" }, "storage.local.base_path"},
		{"s3 without bucket", func(c *Config) {
			c.Storage.DefaultBackend = "s3"
			c.Storage.S3.Region = "us-east-1"
		}, "storage.s3.bucket"},
		{"s3 without region", func(c *Config) {
			c.Storage.DefaultBackend = "s3"
			c.Storage.S3.Bucket = "promo"
		}, "storage.s3.region"},
		{"gcs without bucket", func(c *Config) { c.Storage.DefaultBackend = "gcs" }, "storage.gcs.bucket"},
		{"azure without account", func(c *Config) { c.Storage.DefaultBackend = "azure" }, "storage.azure.account_name"},
		{"minio without endpoint", func(c *Config) {
			c.Storage.DefaultBackend = "minio"
			c.Storage.Minio.Bucket = "promo"
		}, "storage.minio.endpoint"},
		{"minio without bucket", func(c *Config) {
			c.Storage.DefaultBackend = "minio"
			c.Storage.Minio.Endpoint = "localhost:9000"
		}, "storage.minio.bucket"},
		{"tls without cert", func(c *Config) { c.Security.TLS.Enabled = true }, "security.tls.cert_file"},
		{"invalid logging level", func(c *Config) { c.Logging.Level = "trace" }, "invalid logging level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minimalValidConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantMsg)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// expandEnv
// ---------------------------------------------------------------------------

func TestExpandEnv(t *testing.T) {
	t.Run("expands ${VAR} syntax", func(t *testing.T) {
		t.Setenv("CONFIG_TEST_SECRET", "super-secret")
		if got := expandEnv("${CONFIG_TEST_SECRET}"); got != "super-secret" {
			t.Errorf("expandEnv() = %q, want %q", got, "super-secret")
		}
	})

	t.Run("plain string passthrough", func(t *testing.T) {
		if got := expandEnv("no-vars-here"); got != "no-vars-here" {
			t.Errorf("expandEnv() = %q, want %q", got, "no-vars-here")
		}
	})

	t.Run("unset variable expands to empty string", func(t *testing.T) {
		os.Unsetenv("CONFIG_TEST_DEFINITELY_UNSET_12345")
		if got := expandEnv("${CONFIG_TEST_DEFINITELY_UNSET_12345}"); got != "" {
			t.Errorf("expandEnv() = %q, want empty string", got)
		}
	})
}

// ---------------------------------------------------------------------------
// loadDotEnv
// ---------------------------------------------------------------------------

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		if err := loadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("loadDotEnv() unexpected error: %v", err)
		}
	})

	t.Run("variables are loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("CONFIG_TEST_DOTENV=from-file\n"), 0600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("CONFIG_TEST_DOTENV", "")
		os.Unsetenv("CONFIG_TEST_DOTENV")

		if err := loadDotEnv(path); err != nil {
			t.Fatalf("loadDotEnv() error: %v", err)
		}
		if got := os.Getenv("CONFIG_TEST_DOTENV"); got != "from-file" {
			t.Errorf("CONFIG_TEST_DOTENV = %q, want from-file", got)
		}
	})

	t.Run("existing variables win", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("CONFIG_TEST_DOTENV_KEEP=from-file\n"), 0600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("CONFIG_TEST_DOTENV_KEEP", "from-env")

		if err := loadDotEnv(path); err != nil {
			t.Fatalf("loadDotEnv() error: %v", err)
		}
		if got := os.Getenv("CONFIG_TEST_DOTENV_KEEP"); got != "from-env" {
			t.Errorf("CONFIG_TEST_DOTENV_KEEP = %q, want from-env", got)
		}
	})
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

// writeTempConfig creates a temp YAML file and registers a cleanup to remove it.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "config-test-*.yaml")
	if err != nil {
		t.Fatal("CreateTemp:", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	if _, err := f.WriteString(content); err != nil {
		t.Fatal("WriteString:", err)
	}
	f.Close()
	return f.Name()
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Load() expected error for explicit missing file, got nil")
	}
	if !strings.Contains(err.Error(), "error reading config file") {
		t.Errorf("Load() error = %v, want error reading config file", err)
	}
}

func TestLoad_WithConfigFile(t *testing.T) {
	const content = `
server:
  host: "testhost"
  port: 9999
  base_url: "http://testhost:9999"
database:
  host: "dbhost"
  name: "testdb"
  user: "testuser"
admin:
  email: "root@example.com"
  password: "pw"
storage:
  default_backend: "local"
  local:
    base_path: "./test-storage"
logging:
  level: "debug"
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "testhost" {
		t.Errorf("Server.Host = %q, want testhost", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.Host != "dbhost" {
		t.Errorf("Database.Host = %q, want dbhost", cfg.Database.Host)
	}
	if cfg.Admin.Email != "root@example.com" {
		t.Errorf("Admin.Email = %q, want root@example.com", cfg.Admin.Email)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	const content = `
admin:
  email: "root@example.com"
  password: "pw"
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.EntryPath != "/" {
		t.Errorf("default Server.EntryPath = %q, want /", cfg.Server.EntryPath)
	}
	if cfg.Storage.Namespace != "promo" {
		t.Errorf("default Storage.Namespace = %q, want promo", cfg.Storage.Namespace)
	}
	if cfg.Storage.MaxImageBytes != DefaultMaxImageBytes {
		t.Errorf("default Storage.MaxImageBytes = %d, want %d", cfg.Storage.MaxImageBytes, DefaultMaxImageBytes)
	}
	if cfg.Session.CookieName != "admin_auth" {
		t.Errorf("default Session.CookieName = %q, want admin_auth", cfg.Session.CookieName)
	}
	if cfg.Session.TTL != 0 {
		t.Errorf("default Session.TTL = %v, want 0", cfg.Session.TTL)
	}
	if cfg.Database.SSLMode != "require" {
		t.Errorf("default Database.SSLMode = %q, want require", cfg.Database.SSLMode)
	}
	if cfg.Audit.File.Path != "" || cfg.Audit.Webhook.URL != "" {
		t.Errorf("audit sinks enabled by default: %+v", cfg.Audit)
	}
	if cfg.Audit.Webhook.FlushInterval != 5*time.Second {
		t.Errorf("default Audit.Webhook.FlushInterval = %v, want 5s", cfg.Audit.Webhook.FlushInterval)
	}
}

func TestLoad_AuditFromEnv(t *testing.T) {
	t.Setenv("ADMIN_AUDIT_FILE_PATH", "/var/log/admin-audit.log")
	t.Setenv("ADMIN_AUDIT_WEBHOOK_BATCH_SIZE", "25")

	path := writeTempConfig(t, "admin:\n  email: a@example.com\n  password: pw\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Audit.File.Path != "/var/log/admin-audit.log" {
		t.Errorf("Audit.File.Path = %q", cfg.Audit.File.Path)
	}
	if cfg.Audit.File.MaxBackups != 5 {
		t.Errorf("Audit.File.MaxBackups = %d, want 5", cfg.Audit.File.MaxBackups)
	}
	if cfg.Audit.Webhook.BatchSize != 25 {
		t.Errorf("Audit.Webhook.BatchSize = %d, want 25", cfg.Audit.Webhook.BatchSize)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ADMIN_ADMIN_EMAIL", "env@example.com")
	t.Setenv("ADMIN_ADMIN_PASSWORD", "env-pw")
	t.Setenv("ADMIN_SERVER_PORT", "9191")

	path := writeTempConfig(t, "logging:\n  level: info\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Admin.Email != "env@example.com" {
		t.Errorf("Admin.Email = %q, want env@example.com", cfg.Admin.Email)
	}
	if cfg.Admin.Password != "env-pw" {
		t.Errorf("Admin.Password = %q, want env-pw", cfg.Admin.Password)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191", cfg.Server.Port)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PASS", "mysecret")
	t.Setenv("TEST_ADMIN_PASS", "adminsecret")
	const content = `
database:
  password: "${TEST_DB_PASS}"
admin:
  email: "root@example.com"
  password: "${TEST_ADMIN_PASS}"
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Password != "mysecret" {
		t.Errorf("Database.Password = %q, want mysecret", cfg.Database.Password)
	}
	if cfg.Admin.Password != "adminsecret" {
		t.Errorf("Admin.Password = %q, want adminsecret", cfg.Admin.Password)
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	path := writeTempConfig(t, "logging:\n  level: info\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error without admin credentials, got nil")
	}
	if !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("Load() error = %v, want invalid configuration", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "server: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}
