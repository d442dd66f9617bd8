// Package env reads the job configuration the launcher exposes through the
// process environment. Values are read once at initialization and never
// re-read.
package env

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

const (
	RankEnvKey       = `TENSORMESH_RANK`
	WorldSizeEnvKey  = `TENSORMESH_WORLD_SIZE`
	LocalRankEnvKey  = `TENSORMESH_LOCAL_RANK`
	LocalSizeEnvKey  = `TENSORMESH_LOCAL_SIZE`
	MasterAddrEnvKey = `TENSORMESH_MASTER_ADDR`

	ServicePortEnvKey = `TENSORMESH_SERVICE_PORT`
	BucketBytesEnvKey = `TENSORMESH_DEFAULT_BUCKET_BYTES`
)

const (
	defaultMasterAddr  = `127.0.0.1`
	defaultServicePort = 29501
	defaultBucketBytes = 10 * 1024 * 1024
)

type Config struct {
	Rank       int
	WorldSize  int
	LocalRank  int
	LocalSize  int
	MasterAddr string

	ServicePort int
	BucketBytes int
}

// FromEnv parses the launcher-provided configuration, falling back to a
// single-process layout when nothing is set.
func FromEnv() (*Config, error) {
	c := &Config{
		MasterAddr:  defaultMasterAddr,
		ServicePort: defaultServicePort,
		BucketBytes: defaultBucketBytes,
		WorldSize:   1,
		LocalSize:   1,
	}
	if addr := os.Getenv(MasterAddrEnvKey); addr != "" {
		c.MasterAddr = addr
	}
	var err error
	if c.Rank, err = getInt(RankEnvKey, 0); err != nil {
		return nil, err
	}
	if c.WorldSize, err = getInt(WorldSizeEnvKey, 1); err != nil {
		return nil, err
	}
	if c.LocalRank, err = getInt(LocalRankEnvKey, 0); err != nil {
		return nil, err
	}
	if c.LocalSize, err = getInt(LocalSizeEnvKey, 1); err != nil {
		return nil, err
	}
	if c.ServicePort, err = getInt(ServicePortEnvKey, defaultServicePort); err != nil {
		return nil, err
	}
	if c.BucketBytes, err = getInt(BucketBytesEnvKey, defaultBucketBytes); err != nil {
		return nil, err
	}
	return c, nil
}

func getInt(key string, def int) (int, error) {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s: %q", key, val)
	}
	return n, nil
}
