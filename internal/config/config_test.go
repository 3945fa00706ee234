package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/TrevorS/aucell"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, path string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	require.NoError(t, Bind(v, path))
	return v
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(newViper(t, ""))
	require.NoError(t, err)

	def := aucell.DefaultConfig()
	assert.Equal(t, def.MinSetSize, c.MinSetSize)
	assert.Equal(t, def.Threshold.FallbackQuantile, c.FallbackQuantile)
	assert.Equal(t, "average", c.Linkage)
	assert.Equal(t, "info", c.LogLevel)
	assert.True(t, c.Cluster)

	opts := c.Options()
	assert.Equal(t, def.Cutoff, opts.Cutoff)
	assert.Equal(t, def.Threshold, opts.Threshold)
	assert.Equal(t, def.Cluster, opts.Cluster)
	assert.False(t, opts.SkipClustering)
}

func TestNew_Environment(t *testing.T) {
	t.Setenv("AUCELL_RANK_CUTOFF", "250")
	t.Setenv("AUCELL_SEED", "99")
	t.Setenv("AUCELL_CLUSTER", "false")

	c, err := New(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 250, c.RankCutoff)
	assert.Equal(t, uint64(99), c.Seed)

	opts := c.Options()
	assert.Equal(t, 250, opts.RankCutoff)
	assert.True(t, opts.SkipClustering)
}

func TestNew_SettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	body := "min-set-size: 5\nlinkage: complete\nfallback-quantile: 0.9\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	c, err := New(newViper(t, path))
	require.NoError(t, err)

	assert.Equal(t, 5, c.MinSetSize)
	assert.Equal(t, "complete", c.Linkage)
	assert.Equal(t, 0.9, c.FallbackQuantile)
	assert.Equal(t, aucell.LinkageComplete, c.Options().Cluster.Linkage)
}

func TestBind_MissingFile(t *testing.T) {
	v := viper.New()
	err := Bind(v, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestCutoffPolicy(t *testing.T) {
	c := Config{DetectedQuantile: 0.2, GeneFraction: 0.1}
	p := c.CutoffPolicy()
	assert.Equal(t, 0.2, p.DetectedQuantile)
	assert.Equal(t, 0.1, p.GeneFraction)
	assert.Equal(t, aucell.DefaultCutoffPolicy().Min, p.Min)
}
