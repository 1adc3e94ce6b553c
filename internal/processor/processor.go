// Package processor runs one feed cycle: it resolves article identities,
// drops articles already seen, and renders, filters and queues every new
// article for each destination of the feed.
package processor

import (
	"context"
	"fmt"
	"time"

	"monitorss/internal/article"
	"monitorss/internal/delivery"
	"monitorss/internal/destination"
	"monitorss/internal/feed"
	"monitorss/internal/filters"
	"monitorss/internal/formatter"
	"monitorss/internal/logger"
	"monitorss/internal/outcomes"
	"monitorss/internal/seen"
	"monitorss/pkg/clock"
	"monitorss/pkg/logging"
	"monitorss/pkg/metrics"
	"monitorss/pkg/tracing"
)

// Enqueuer accepts rendered messages for delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, destinationID string, a *article.Article, messages []formatter.Message) (*delivery.Job, error)
}

// Summary counts what happened to the articles of one cycle.
type Summary struct {
	Fetched  int `json:"fetched"`
	New      int `json:"new"`
	Queued   int `json:"queued"`
	Filtered int `json:"filtered"`
	Failed   int `json:"failed"`
}

type Processor struct {
	flattener *article.Flattener
	seen      seen.Store
	dir       destination.Directory
	formatter *formatter.Formatter
	checker   *filters.Checker
	enqueuer  Enqueuer
	outcomes  outcomes.Store
	clock     clock.Clock
	verbose   bool
	logger    logger.Logger
}

// Options wires a Processor.
type Options struct {
	Flattener *article.Flattener
	Seen      seen.Store
	Directory destination.Directory
	Formatter *formatter.Formatter
	Checker   *filters.Checker
	Enqueuer  Enqueuer
	Outcomes  outcomes.Store
	Clock     clock.Clock
	// Verbose logs every article blocked by filters at info level.
	Verbose bool
	Logger  logger.Logger
}

func New(opts Options) *Processor {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Processor{
		flattener: opts.Flattener,
		seen:      opts.Seen,
		dir:       opts.Directory,
		formatter: opts.Formatter,
		checker:   opts.Checker,
		enqueuer:  opts.Enqueuer,
		outcomes:  opts.Outcomes,
		clock:     clk,
		verbose:   opts.Verbose,
		logger:    opts.Logger,
	}
}

// Process runs one cycle for feedID over the items of src. feedURL selects
// source-specific flattening rules.
func (p *Processor) Process(ctx context.Context, feedID, feedURL string, src feed.Source) (Summary, error) {
	ctx = logging.WithFeedID(ctx, feedID)
	ctx, span := tracing.Start(ctx, "processor.process", tracing.FeedID(feedID))
	defer span.End()

	start := time.Now()
	summary, err := p.process(ctx, feedID, feedURL, src)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ObserveFeedCycleDuration(time.Since(start), status)
	metrics.IncArticlesProcessed("queued", summary.Queued)
	metrics.IncArticlesProcessed("filtered", summary.Filtered)
	metrics.IncArticlesProcessed("failed", summary.Failed)
	metrics.IncArticlesProcessed("seen", summary.Fetched-summary.New)

	if err != nil {
		return summary, err
	}
	p.logger.InfowCtx(ctx, "Feed cycle completed",
		"fetched", summary.Fetched,
		"new", summary.New,
		"queued", summary.Queued,
		"filtered", summary.Filtered,
		"failed", summary.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return summary, nil
}

func (p *Processor) process(ctx context.Context, feedID, feedURL string, src feed.Source) (Summary, error) {
	var summary Summary

	items, err := src.Items(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to read feed items: %w", err)
	}
	summary.Fetched = len(items)

	articles := make([]*article.Article, 0, len(items))
	for _, raw := range items {
		articles = append(articles, article.New(raw))
	}
	articles = article.ResolveIdentities(ctx, articles, p.logger)

	fresh, err := seen.FilterNew(ctx, p.seen, feedID, articles)
	if err != nil {
		return summary, fmt.Errorf("failed to check seen articles: %w", err)
	}
	summary.New = len(fresh)
	if len(fresh) == 0 {
		return summary, nil
	}

	dests, err := p.dir.ListByFeed(ctx, feedID)
	if err != nil {
		return summary, fmt.Errorf("failed to list destinations: %w", err)
	}
	if len(dests) == 0 {
		p.logger.DebugwCtx(ctx, "Feed has no active destinations", "new_articles", len(fresh))
		return summary, nil
	}

	rules := article.RulesForURL(feedURL)
	for _, a := range fresh {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		actx := logging.WithArticleID(ctx, a.ID)
		if err := p.flattener.Flatten(a, rules); err != nil {
			p.logger.ErrorwCtx(actx, "Failed to flatten article", "error", err)
			for _, dest := range dests {
				p.record(actx, dest, a, outcomes.StatusRejected, outcomes.ErrorCodeArticleProcessingError, err.Error())
			}
			summary.Failed++
			continue
		}

		for _, dest := range dests {
			switch p.deliver(logging.WithDestinationID(actx, dest.ID), feedID, dest, a) {
			case stateQueued:
				summary.Queued++
			case stateFiltered:
				summary.Filtered++
			case stateFailed:
				summary.Failed++
			}
		}
	}
	return summary, nil
}

type deliveryState int

const (
	stateQueued deliveryState = iota
	stateFiltered
	stateFailed
)

func (p *Processor) deliver(ctx context.Context, feedID string, dest *destination.Destination, a *article.Article) deliveryState {
	settings := dest.Settings
	values, _ := p.formatter.Values(ctx, a, settings.Template.Format, settings.CustomPlaceholders)

	res := p.checker.Check(ctx, settings.Filters, values, feedID, dest.ID)
	if !res.Passed {
		if p.verbose {
			p.logger.InfowCtx(ctx, "Article blocked by filters",
				"title", values["title"],
				"explain", res.ExplainBlocked,
			)
		}
		p.record(ctx, dest, a, outcomes.StatusFilteredOut, "", outcomes.CommentBlockedByFilters)
		return stateFiltered
	}

	messages := p.formatter.Messages(a, values, settings.Template)
	if _, err := p.enqueuer.Enqueue(ctx, dest.ID, a, messages); err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to queue article", "error", err)
		p.record(ctx, dest, a, outcomes.StatusFailed, outcomes.ErrorCodeInternal, err.Error())
		return stateFailed
	}
	return stateQueued
}

func (p *Processor) record(ctx context.Context, dest *destination.Destination, a *article.Article, status outcomes.Status, code outcomes.ErrorCode, comment string) {
	err := p.outcomes.Record(ctx, &outcomes.Outcome{
		FeedID:        dest.FeedID,
		DestinationID: dest.ID,
		ArticleID:     a.ID,
		ArticleIDHash: a.IDHash,
		Status:        status,
		ErrorCode:     code,
		Comment:       comment,
		Timestamp:     p.clock.Now().UTC(),
	})
	if err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to record outcome",
			"status", status,
			"error", err,
		)
	}
}
