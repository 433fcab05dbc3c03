package conf

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "sqlite", s.Database.Driver)
	assert.Equal(t, "log", s.Email.Driver)
	assert.Equal(t, 100, s.Engine.DefaultMaxPerHour)
	assert.Equal(t, 90, s.Engine.RetentionDays)
	assert.Equal(t, 5*time.Minute, s.Scheduler.AlertsInterval.Std())
	assert.Equal(t, 24*time.Hour, s.Scheduler.OverdueInterval.Std())
	assert.Equal(t, 5*time.Minute, s.Engine.ContactCacheTTL.Std())
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
engine:
  timezone: America/Bogota
  exclude_actor: true
  default_max_per_hour: 10
scheduler:
  alerts_interval: 90s
  redis_url: redis://localhost:6379/0
kafka:
  enabled: true
  brokers: [localhost:9092]
`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.True(t, s.Engine.ExcludeActor)
	assert.Equal(t, 10, s.Engine.DefaultMaxPerHour)
	assert.Equal(t, 90*time.Second, s.Scheduler.AlertsInterval.Std())
	assert.Equal(t, "redis://localhost:6379/0", s.Scheduler.RedisURL)
	assert.Equal(t, []string{"localhost:9092"}, s.Kafka.Brokers)
	assert.Equal(t, "America/Bogota", s.Engine.Location().String())
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: sqlite\n")
	t.Setenv("NOTIFY_DATABASE_DSN", "file::memory:")
	t.Setenv("NOTIFY_SCHEDULER_RUN_TIMEOUT", "45s")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file::memory:", s.Database.DSN)
	assert.Equal(t, 45*time.Second, s.Scheduler.RunTimeout.Std())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"bad driver", "database:\n  driver: oracle\n", "unsupported database driver"},
		{"shoutrrr without url", "email:\n  driver: shoutrrr\n", "shoutrrr_url"},
		{"smtp without host", "email:\n  driver: smtp\n", "email.host"},
		{"kafka without brokers", "kafka:\n  enabled: true\n", "kafka.brokers"},
		{"bad timezone", "engine:\n  timezone: Mars/Olympus\n", "timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDuration_JSONAndYAML(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.JSONEq(t, `"1m30s"`, string(b))

	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"15m"`), &d))
	assert.Equal(t, 15*time.Minute, d.Std())
	require.Error(t, json.Unmarshal([]byte(`"soon"`), &d))

	var holder struct {
		Every Duration `yaml:"every"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("every: 2h\n"), &holder))
	assert.Equal(t, 2*time.Hour, holder.Every.Std())

	out, err := yaml.Marshal(holder)
	require.NoError(t, err)
	assert.Contains(t, string(out), "every: 2h0m0s")
}
