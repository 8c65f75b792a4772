package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseWeights(t *testing.T) {
	t.Run("custom table", func(t *testing.T) {
		w := parseWeights("happy:0.95,angry:0.1")
		assert.Equal(t, map[string]float64{"happy": 0.95, "angry": 0.1}, w)
	})

	t.Run("empty falls back to defaults", func(t *testing.T) {
		assert.Equal(t, DefaultAttentivenessWeights(), parseWeights(""))
	})

	t.Run("malformed entries are skipped", func(t *testing.T) {
		w := parseWeights("happy:0.9,broken,sad:notanumber")
		assert.Equal(t, map[string]float64{"happy": 0.9}, w)
	})

	t.Run("fully malformed falls back to defaults", func(t *testing.T) {
		assert.Equal(t, DefaultAttentivenessWeights(), parseWeights("nonsense"))
	})
}

func TestParseDurations(t *testing.T) {
	t.Run("millisecond list", func(t *testing.T) {
		d := parseDurations("0,250,1000,3000")
		assert.Equal(t, []time.Duration{0, 250 * time.Millisecond, time.Second, 3 * time.Second}, d)
	})

	t.Run("negative and malformed values are skipped", func(t *testing.T) {
		d := parseDurations("100,-5,abc,200")
		assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, d)
	})

	t.Run("empty falls back to the default ladder", func(t *testing.T) {
		d := parseDurations("")
		assert.Equal(t, []time.Duration{0, 250 * time.Millisecond, time.Second, 3 * time.Second}, d)
	})
}

func TestDatabaseDSN(t *testing.T) {
	t.Run("url wins when set", func(t *testing.T) {
		c := DatabaseConfig{URL: "postgres://u:p@db:5432/app"}
		assert.Equal(t, "postgres://u:p@db:5432/app", c.DSN())
	})

	t.Run("built from components", func(t *testing.T) {
		c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "app", SSLMode: "disable"}
		assert.Equal(t, "postgres://u:p@db:5432/app?sslmode=disable", c.DSN())
	})
}
