package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobility-finance-engine/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
database:
  host: 127.0.0.1
  port: 3306
  user: mobility
  password: secret
  dbname: mobility_finance

server:
  port: 9090

identity:
  admin_address: "0x0000000000000000000000000000000000000001"
  oracle_address: "0x0000000000000000000000000000000000000002"

engine:
  bonus_rate_pct: 25
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0x0000000000000000000000000000000000000001", cfg.Identity.AdminAddress)
	assert.Equal(t, 25, cfg.Engine.BonusRatePct)

	// 未显式配置的引擎与治理参数取默认值
	assert.Equal(t, 8, cfg.Engine.BaseRate)
	assert.Equal(t, 15, cfg.Engine.MaxRateAdjustment)
	assert.Equal(t, 150, cfg.Governance.EquityBoostMultiplier)
	assert.Equal(t, 70, cfg.Governance.DefaultBoostThreshold)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_DSN(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.internal
  port: 3307
  user: svc
  password: pw
  dbname: engine
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "svc:pw@tcp(db.internal:3307)/engine?charset=utf8mb4&parseTime=True&loc=Local", cfg.Database.DSN())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
