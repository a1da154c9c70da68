package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "unit-test-secret-0123456789"
store:
  driver: memory
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("期望默认端口 8080，实际=%d", cfg.Server.Port)
	}
	if cfg.Auth.AccessTokenTTL != 2*time.Hour {
		t.Errorf("期望默认 AccessTokenTTL=2h，实际=%v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Meeting.Location().String() != "Asia/Kolkata" {
		t.Errorf("期望默认时区 Asia/Kolkata，实际=%s", cfg.Meeting.Location())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "unit-test-secret-0123456789"
`)
	t.Setenv("MARKLY_SERVER_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望环境变量覆盖端口为 9090，实际=%d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Server:  ServerConfig{Port: 8080},
		Store:   StoreConfig{Driver: "memory"},
		Auth:    AuthConfig{JWTSecret: "unit-test-secret-0123456789"},
		Meeting: MeetingConfig{Timezone: "UTC"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}

	short := base
	short.Auth.JWTSecret = "short"
	if err := short.Validate(); err == nil {
		t.Error("jwt_secret 过短应报错")
	}

	badDriver := base
	badDriver.Store.Driver = "mysql"
	if err := badDriver.Validate(); err == nil {
		t.Error("不支持的 store.driver 应报错")
	}

	badTZ := base
	badTZ.Meeting.Timezone = "Mars/Olympus"
	if err := badTZ.Validate(); err == nil {
		t.Error("无效时区应报错")
	}
}
