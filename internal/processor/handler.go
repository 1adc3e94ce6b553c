package processor

import (
	"context"

	"monitorss/internal/feed"
	apperrors "monitorss/pkg/errors"
	"monitorss/pkg/models"
	"monitorss/pkg/retry"
)

// FeedJobHandler returns a broker handler that runs one cycle per
// models.FeedArticlesJob envelope. Malformed jobs and unparsable documents
// are fatal so the consumer sends them straight to the dead letter topic.
func (p *Processor) FeedJobHandler(parser *feed.Parser) func(ctx context.Context, msg models.MessageEnvelope) error {
	return func(ctx context.Context, msg models.MessageEnvelope) error {
		if msg.Type != models.TypeFeedArticles {
			p.logger.WarnwCtx(ctx, "Ignoring message of unexpected type", "id", msg.ID, "type", msg.Type)
			return nil
		}

		var job models.FeedArticlesJob
		if err := msg.DecodePayload(&job); err != nil {
			return retry.NewFatalError(err)
		}
		if err := models.ValidateFeedArticlesJob(&job); err != nil {
			return retry.NewFatalError(err)
		}

		var src feed.Source = feed.StaticSource(job.Items)
		if job.Document != "" {
			src = feed.DocumentSource{Parser: parser, Document: job.Document}
		}

		_, err := p.Process(ctx, job.FeedID, job.FeedURL, src)
		if err != nil && apperrors.IsValidation(err) {
			return retry.NewFatalError(err)
		}
		return err
	}
}
