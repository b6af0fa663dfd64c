package ampclimb

import (
	"encoding/json"
	"fmt"

	"ampclimb/internal/config"
	"ampclimb/internal/oracle"
)

// BuildOracle assembles the configured oracle stack: the scorer itself, the
// optional score cache, metrics, and serialization when the scorer is not
// safe for concurrent use. The returned close function releases the cache.
func BuildOracle(cfg config.Config) (oracle.Oracle, func() error, error) {
	noop := func() error { return nil }

	base, err := oracle.Build(cfg.Oracle)
	if err != nil {
		return nil, noop, err
	}

	var (
		o       oracle.Oracle = base
		closeFn               = noop
	)
	switch cfg.Cache.Kind {
	case "", "none":
	case "memory":
		o = oracle.NewCached(o, cfg.Cache.Size)
	case "badger":
		namespace, err := cacheNamespace(cfg.Oracle)
		if err != nil {
			return nil, noop, err
		}
		cache, err := oracle.OpenBadgerCache(o, cfg.Cache.Dir, namespace)
		if err != nil {
			return nil, noop, err
		}
		o = cache
		closeFn = cache.Close
	default:
		return nil, noop, fmt.Errorf("unsupported cache kind: %s", cfg.Cache.Kind)
	}

	o = oracle.Instrumented{Inner: o, Name: cfg.Oracle.Kind}
	if cfg.SerializeOracle {
		o = oracle.NewLocked(o)
	}
	return o, closeFn, nil
}

// cacheNamespace keys persistent scores by the full oracle description so
// differently parameterised scorers never share entries.
func cacheNamespace(spec oracle.Spec) (string, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
