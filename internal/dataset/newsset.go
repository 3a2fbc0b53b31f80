package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"updown-dataset/internal/storage"
)

// JoinMode controls how headline groups are matched against labels.
type JoinMode string

const (
	// JoinRequired keeps only groups whose prediction day has a label.
	JoinRequired JoinMode = "required"
	// JoinOptional keeps every group and leaves label fields unset where
	// no label exists.
	JoinOptional JoinMode = "optional"
)

// ParseJoinMode validates a user-supplied join mode.
func ParseJoinMode(value string) (JoinMode, error) {
	switch JoinMode(value) {
	case JoinRequired, JoinOptional:
		return JoinMode(value), nil
	default:
		return "", &ConfigError{Reason: fmt.Sprintf("unknown join mode %q, want required or optional", value)}
	}
}

// SourceHeadline is one article normalized out of any news source. The
// timestamp stays raw text because archived rows may carry shapes the
// resolver cannot parse.
type SourceHeadline struct {
	Ticker      string
	Headline    string
	PublishedAt string
}

// HeadlineGroup is all distinct news mapped to one (ticker, prediction
// day). Headlines keep their input order.
type HeadlineGroup struct {
	Ticker         string
	PredictionDate time.Time
	Headlines      []string
}

// GroupHeadlines drops duplicate (ticker, headline) pairs, resolves each
// remaining article to its prediction day, and groups by (ticker, day).
// Articles whose timestamp cannot be parsed are dropped and counted in the
// second return. The result is sorted by ticker then day.
func GroupHeadlines(cutoff *Cutoff, records []SourceHeadline) ([]HeadlineGroup, int) {
	type groupKey struct {
		ticker string
		day    time.Time
	}
	seen := make(map[[2]string]struct{}, len(records))
	groups := make(map[groupKey]*HeadlineGroup)
	dropped := 0

	for _, rec := range records {
		dup := [2]string{rec.Ticker, rec.Headline}
		if _, ok := seen[dup]; ok {
			continue
		}
		seen[dup] = struct{}{}

		day, err := cutoff.PredictionDate(rec.PublishedAt)
		if err != nil {
			dropped++
			continue
		}
		key := groupKey{ticker: rec.Ticker, day: day}
		group, ok := groups[key]
		if !ok {
			group = &HeadlineGroup{Ticker: rec.Ticker, PredictionDate: day}
			groups[key] = group
		}
		group.Headlines = append(group.Headlines, rec.Headline)
	}

	out := make([]HeadlineGroup, 0, len(groups))
	for _, group := range groups {
		out = append(out, *group)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].PredictionDate.Before(out[j].PredictionDate)
	})
	return out, dropped
}

// NewsRow is one line of the news training table.
type NewsRow struct {
	Ticker         string
	PredictionDate time.Time
	NumArticles    int
	HeadlinesText  string
	HeadlinesJSON  string
	HasLabel       bool
	LabelBinary    int
	LabelReturn    float64
	CloseT         float64
	CloseT1        float64
}

// JoinLabels attaches direction labels to headline groups. Required mode
// drops unlabeled groups; optional mode keeps them with label fields
// unset.
func JoinLabels(groups []HeadlineGroup, labels []storage.Label, mode JoinMode) ([]NewsRow, error) {
	type labelKey struct {
		ticker string
		day    time.Time
	}
	byKey := make(map[labelKey]storage.Label, len(labels))
	for _, label := range labels {
		byKey[labelKey{ticker: label.Ticker, day: storage.Day(label.Date)}] = label
	}

	rows := make([]NewsRow, 0, len(groups))
	for _, group := range groups {
		encoded, err := json.Marshal(group.Headlines)
		if err != nil {
			return nil, fmt.Errorf("encode headlines for %s: %w", group.Ticker, err)
		}
		row := NewsRow{
			Ticker:         group.Ticker,
			PredictionDate: group.PredictionDate,
			NumArticles:    len(group.Headlines),
			HeadlinesText:  strings.Join(group.Headlines, " | "),
			HeadlinesJSON:  string(encoded),
		}
		label, ok := byKey[labelKey{ticker: group.Ticker, day: group.PredictionDate}]
		if ok {
			row.HasLabel = true
			row.LabelBinary = label.Binary
			row.LabelReturn = label.Return
			row.CloseT = label.CloseT
			row.CloseT1 = label.CloseT1
		} else if mode == JoinRequired {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NewsSummary reports how the news dataset was assembled.
type NewsSummary struct {
	SourceHeadlines  int
	ArchiveHeadlines int
	Unresolvable     int
	Groups           int
	Rows             int
	Labeled          int
	Unlabeled        int
}

// NewsBuilder assembles the news text dataset from stored articles,
// optionally merged with an archive table, joined against labels.
type NewsBuilder struct {
	news       storage.NewsStore
	labels     storage.LabelStore
	cutoff     *Cutoff
	useArchive bool
	logger     zerolog.Logger
}

func NewNewsBuilder(news storage.NewsStore, labels storage.LabelStore, cutoff *Cutoff, useArchive bool, logger zerolog.Logger) *NewsBuilder {
	return &NewsBuilder{
		news:       news,
		labels:     labels,
		cutoff:     cutoff,
		useArchive: useArchive,
		logger:     logger.With().Str("component", "news_builder").Logger(),
	}
}

// Build loads every news source, groups headlines per (ticker, prediction
// day), and joins labels in the requested mode. Enabling the archive while
// its table is absent is a configuration error.
func (b *NewsBuilder) Build(ctx context.Context, mode JoinMode) ([]NewsRow, NewsSummary, error) {
	var summary NewsSummary

	main, err := b.news.ListHeadlines(ctx)
	if err != nil {
		return nil, summary, fmt.Errorf("load headlines: %w", err)
	}
	summary.SourceHeadlines = len(main)
	records := make([]SourceHeadline, 0, len(main))
	for _, h := range main {
		records = append(records, SourceHeadline{
			Ticker:      h.Ticker,
			Headline:    h.Headline,
			PublishedAt: h.PublishedAt.Format(time.RFC3339),
		})
	}

	if b.useArchive {
		present, err := b.news.HasArchiveTable(ctx)
		if err != nil {
			return nil, summary, fmt.Errorf("check archive table: %w", err)
		}
		if !present {
			return nil, summary, &ConfigError{Reason: "news archive is enabled but the archive_articles table does not exist"}
		}
		archive, err := b.news.ListArchiveHeadlines(ctx)
		if err != nil {
			return nil, summary, fmt.Errorf("load archive headlines: %w", err)
		}
		summary.ArchiveHeadlines = len(archive)
		for _, h := range archive {
			records = append(records, SourceHeadline{
				Ticker:      h.Ticker,
				Headline:    h.Headline,
				PublishedAt: h.PublishedAt,
			})
		}
	}

	groups, dropped := GroupHeadlines(b.cutoff, records)
	summary.Unresolvable = dropped
	summary.Groups = len(groups)

	labels, err := b.labels.ListAllLabels(ctx)
	if err != nil {
		return nil, summary, fmt.Errorf("load labels: %w", err)
	}
	rows, err := JoinLabels(groups, labels, mode)
	if err != nil {
		return nil, summary, err
	}
	summary.Rows = len(rows)
	for _, row := range rows {
		if row.HasLabel {
			summary.Labeled++
		} else {
			summary.Unlabeled++
		}
	}

	b.logger.Info().
		Int("headlines", summary.SourceHeadlines+summary.ArchiveHeadlines).
		Int("unresolvable", summary.Unresolvable).
		Int("groups", summary.Groups).
		Int("rows", summary.Rows).
		Str("join", string(mode)).
		Msg("news dataset built")
	return rows, summary, nil
}
