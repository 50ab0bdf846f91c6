package report

import (
	"bytes"
	"context"
	"iter"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"idsearch/internal/blob"
	"idsearch/internal/core"
)

// LookupKey is where the most recent lookup export is written.
const LookupKey = "participants_lookup.csv"

const contentTypeCSV = "text/csv"

// Publisher writes rendered reports to an artifact store.
type Publisher struct {
	store  blob.Store
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger used for publish events.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithClock overrides the time source used for batch keys.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPublisher returns a publisher writing to store.
func NewPublisher(store blob.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store returns the underlying artifact store.
func (p *Publisher) Store() blob.Store { return p.store }

// BatchKey names a batch export by its UTC timestamp.
func (p *Publisher) BatchKey() string {
	return "batch/" + p.now().UTC().Format("20060102T150405.000Z") + ".csv"
}

// PublishParticipants writes rows as CSV to key, replacing any previous
// export at that key.
func (p *Publisher) PublishParticipants(ctx context.Context, key string, rows []core.Projection) (blob.Info, error) {
	var buf bytes.Buffer
	if err := WriteParticipants(&buf, rows); err != nil {
		return blob.Info{}, err
	}
	info, err := p.store.Put(ctx, key, &buf, blob.PutOptions{
		ContentType: contentTypeCSV,
		Metadata: map[string]string{
			"rows":       strconv.Itoa(len(rows)),
			"projection": core.ProjectionV1,
		},
		Overwrite: true,
	})
	if err != nil {
		return blob.Info{}, err
	}
	p.logger.Info().Str("key", info.Key).Int("rows", len(rows)).Str("driver", string(p.store.Driver())).Msg("lookup report published")
	return info, nil
}

// PublishBatch drains seq into a CSV written to key. Nothing is stored when
// the sequence yields an error.
func (p *Publisher) PublishBatch(ctx context.Context, key string, table core.Table, seq iter.Seq2[core.Resolution, error]) (blob.Info, BatchStats, error) {
	var buf bytes.Buffer
	stats, err := WriteBatch(&buf, table, seq)
	if err != nil {
		return blob.Info{}, stats, err
	}
	info, err := p.store.Put(ctx, key, &buf, blob.PutOptions{
		ContentType: contentTypeCSV,
		Metadata: map[string]string{
			"rows":       strconv.Itoa(stats.Rows),
			"resolved":   strconv.Itoa(stats.Resolved),
			"ambiguous":  strconv.Itoa(stats.Ambiguous),
			"unresolved": strconv.Itoa(stats.Unresolved),
		},
	})
	if err != nil {
		return blob.Info{}, stats, err
	}
	p.logger.Info().Str("key", info.Key).Int("rows", stats.Rows).Int("ambiguous", stats.Ambiguous).Msg("batch report published")
	return info, stats, nil
}
