// Package schema resolves column comparator and validator types from
// describe_keyspace metadata, memoized per keyspace with a TTL so repeated
// lookups during pagination do not hit the backend.
package schema

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"

	"github.com/kallaspriit/cassandra-go-client/pkg/cassandra"
	"github.com/kallaspriit/cassandra-go-client/pkg/marshal"
)

// DefaultTTL matches the upstream schema cache validity.
const DefaultTTL = 3600 * time.Second

// Describer is the slice of the client the provider needs.
type Describer interface {
	Keyspace() string
	DescribeKeyspace(ctx context.Context, keyspace string) (*cassandra.KsDef, error)
}

// Provider implements cassandra.SchemaProvider backed by describe_keyspace
// with a per-keyspace TTL cache.
type Provider struct {
	client Describer
	cache  *ttlcache.Cache[string, *cassandra.KsDef]
	logger log.Logger
}

// New builds a provider with the given cache TTL; ttl of 0 uses DefaultTTL.
func New(client Describer, ttl time.Duration, logger log.Logger) *Provider {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Provider{
		client: client,
		cache: ttlcache.New[string, *cassandra.KsDef](
			ttlcache.WithTTL[string, *cassandra.KsDef](ttl),
			ttlcache.WithDisableTouchOnHit[string, *cassandra.KsDef](),
		),
		logger: logger,
	}
}

// ColumnNameType returns the comparator type of column names in the family.
func (p *Provider) ColumnNameType(ctx context.Context, columnFamily string, useCache bool) (marshal.TypeTag, error) {
	def, err := p.describe(ctx, columnFamily, useCache)
	if err != nil {
		return "", err
	}
	return marshal.Normalize(def.ComparatorType), nil
}

// ColumnValueType returns the validation class of a column's values, from
// per-column metadata when present, else the family default. Unknown
// columns degrade to bytes.
func (p *Provider) ColumnValueType(ctx context.Context, columnFamily, column string, useCache bool) (marshal.TypeTag, error) {
	def, err := p.describe(ctx, columnFamily, useCache)
	if err != nil {
		return "", err
	}
	for _, meta := range def.ColumnMetadata {
		if string(meta.Name) == column {
			return marshal.Normalize(meta.ValidationClass), nil
		}
	}
	if def.DefaultValidationClass != "" {
		return marshal.Normalize(def.DefaultValidationClass), nil
	}
	return marshal.BytesType, nil
}

// IsSuper reports whether the family holds super columns.
func (p *Provider) IsSuper(ctx context.Context, columnFamily string, useCache bool) (bool, error) {
	def, err := p.describe(ctx, columnFamily, useCache)
	if err != nil {
		return false, err
	}
	return def.IsSuper(), nil
}

// Invalidate drops the cached description of one keyspace.
func (p *Provider) Invalidate(keyspace string) {
	p.cache.Delete(keyspace)
}

func (p *Provider) describe(ctx context.Context, columnFamily string, useCache bool) (*cassandra.CfDef, error) {
	keyspace := p.client.Keyspace()
	if keyspace == "" {
		return nil, errors.New("schema: no active keyspace")
	}

	var ks *cassandra.KsDef
	if useCache {
		if item := p.cache.Get(keyspace); item != nil {
			ks = item.Value()
		}
	}
	if ks == nil {
		fresh, err := p.client.DescribeKeyspace(ctx, keyspace)
		if err != nil {
			return nil, errors.Wrapf(err, "schema: describing keyspace %q", keyspace)
		}
		p.cache.Set(keyspace, fresh, ttlcache.DefaultTTL)
		level.Debug(p.logger).Log("msg", "cached keyspace description", "keyspace", keyspace)
		ks = fresh
	}

	def := ks.ColumnFamilyDef(columnFamily)
	if def == nil {
		return nil, errors.Errorf("schema: column family %q not found in keyspace %q", columnFamily, keyspace)
	}
	return def, nil
}
