package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"monitorss/internal/article"
	"monitorss/internal/config"
	"monitorss/internal/destination"
	"monitorss/internal/formatter"
	"monitorss/internal/logger"
	"monitorss/internal/outcomes"
	"monitorss/pkg/clock"
	"monitorss/pkg/logging"
	"monitorss/pkg/metrics"
	"monitorss/pkg/retry"
	"monitorss/pkg/tracing"
)

const (
	defaultMaxAttempts = 3
	commentNoEndpoint  = "No channel or webhook specified"
)

// ErrClosed is returned by Enqueue after Stop.
var ErrClosed = errors.New("delivery pipeline is closed")

// lane is the queue, allowance and ticker state of one destination.
type lane struct {
	id        string
	rate      float64
	queue     queue
	allowance *allowance
	inFlight  atomic.Bool
}

// Pipeline owns one lane per destination. Lanes are created on first
// enqueue and run until Stop.
type Pipeline struct {
	cfg        config.DeliveryConfig
	dir        destination.Directory
	dispatcher Dispatcher
	store      outcomes.Store
	rec        *recorder
	clock      clock.Clock
	logger     logger.Logger

	mu      sync.Mutex
	lanes   map[string]*lane
	closed  bool
	started bool
	runCtx  context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
}

func NewPipeline(
	cfg config.DeliveryConfig,
	dir destination.Directory,
	dispatcher Dispatcher,
	store outcomes.Store,
	publisher EventPublisher,
	clk clock.Clock,
	log logger.Logger,
) *Pipeline {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if clk == nil {
		clk = clock.Real()
	}

	return &Pipeline{
		cfg:        cfg,
		dir:        dir,
		dispatcher: dispatcher,
		store:      store,
		rec: &recorder{
			store:     store,
			publisher: publisher,
			policy:    retry.Policy(cfg.Retry),
			logger:    log,
		},
		clock:  clk,
		logger: log,
		lanes:  make(map[string]*lane),
	}
}

// Start launches the lane tickers and the allowance timer. It returns
// immediately; call Stop to shut down.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("delivery pipeline already started")
	}
	if p.closed {
		return ErrClosed
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.group, runCtx = errgroup.WithContext(runCtx)
	p.runCtx, p.cancel = runCtx, cancel
	p.started = true

	if p.cfg.Allowance > 0 && p.cfg.AllowanceWindow > 0 {
		p.group.Go(func() error { return p.runAllowanceResets(runCtx) })
	}
	for _, l := range p.lanes {
		p.startLane(l)
	}

	p.logger.InfowCtx(ctx, "Delivery pipeline started",
		"destinations", len(p.lanes),
		"default_dequeue_rate", p.cfg.DequeueRate,
	)
	return nil
}

// Stop rejects new jobs, stops the tickers and waits for in-flight
// dispatches, which finish or time out on their own.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	p.closed = true
	cancel, group := p.cancel, p.group
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Enqueue queues messages rendered from a for a destination. A destination
// without a channel or webhook gets a failed outcome and no job.
func (p *Pipeline) Enqueue(ctx context.Context, destinationID string, a *article.Article, messages []formatter.Message) (*Job, error) {
	dest, err := p.dir.Get(ctx, destinationID)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithDestinationID(logging.WithFeedID(ctx, dest.FeedID), dest.ID)

	if !dest.HasEndpoint() {
		p.rec.record(ctx, &outcomes.Outcome{
			FeedID:        dest.FeedID,
			DestinationID: dest.ID,
			ArticleID:     a.ID,
			ArticleIDHash: a.IDHash,
			Status:        outcomes.StatusFailed,
			ErrorCode:     outcomes.ErrorCodeNoChannelOrWebhook,
			Comment:       commentNoEndpoint,
			Timestamp:     p.clock.Now().UTC(),
		})
		metrics.IncDelivery(ResultFailed.String())
		return nil, nil
	}

	job := &Job{
		ID:            uuid.New().String(),
		FeedID:        dest.FeedID,
		DestinationID: dest.ID,
		ArticleID:     a.ID,
		ArticleIDHash: a.IDHash,
		Messages:      messages,
		EnqueuedAt:    p.clock.Now().UTC(),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	l := p.laneLocked(dest)
	l.queue.push(job)
	p.mu.Unlock()

	p.reportDepth()
	p.logger.DebugwCtx(ctx, "Article queued for delivery",
		"job_id", job.ID,
		"parts", len(messages),
	)
	return job, nil
}

// QueueDepth returns the jobs waiting for a destination.
func (p *Pipeline) QueueDepth(destinationID string) Depth {
	p.mu.Lock()
	l, ok := p.lanes[destinationID]
	p.mu.Unlock()

	if !ok {
		return Depth{}
	}
	return l.queue.depth()
}

// Outcomes lists the outcomes of a feed recorded within window of now.
func (p *Pipeline) Outcomes(ctx context.Context, feedID string, window time.Duration) ([]outcomes.Outcome, error) {
	return p.store.ListByFeed(ctx, feedID, p.clock.Now().Add(-window))
}

// laneLocked returns the lane of dest, creating it when missing. p.mu must be
// held.
func (p *Pipeline) laneLocked(dest *destination.Destination) *lane {
	if l, ok := p.lanes[dest.ID]; ok {
		return l
	}

	rate := dest.DequeueRate
	if rate <= 0 {
		rate = p.cfg.DequeueRate
	}
	l := &lane{
		id:        dest.ID,
		rate:      rate,
		allowance: newAllowance(p.cfg.Allowance, dest.Supporter, p.cfg.SupporterMultiplier),
	}
	p.lanes[dest.ID] = l

	if p.started {
		p.startLane(l)
	}
	return l
}

// startLane must be called with p.mu held.
func (p *Pipeline) startLane(l *lane) {
	ctx := p.runCtx
	p.group.Go(func() error { return p.runLane(ctx, l) })
}

func (p *Pipeline) runLane(ctx context.Context, l *lane) error {
	interval, batch := tickPlan(l.rate)
	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			p.tick(ctx, l, batch)
		}
	}
}

// tick takes a batch off the lane and dispatches it in the background. A tick
// that fires while the previous batch is still in flight is skipped.
func (p *Pipeline) tick(ctx context.Context, l *lane, batch int) {
	if !l.inFlight.CompareAndSwap(false, true) {
		return
	}

	jobs, dropped := l.queue.take(batch, l.allowance.take)
	if len(dropped) > 0 {
		metrics.AllowanceExhaustedTotal.Add(float64(len(dropped)))
		p.logger.WarnwCtx(ctx, "Destination allowance exhausted, dropping jobs for this cycle",
			"destination_id", l.id,
			"dropped", len(dropped),
		)
		p.reportDepth()
	}
	if len(jobs) == 0 {
		l.inFlight.Store(false)
		return
	}

	// Dispatches outlive shutdown so accepted jobs finish or time out.
	dispatchCtx := context.WithoutCancel(ctx)
	p.group.Go(func() error {
		defer l.inFlight.Store(false)
		for _, job := range jobs {
			p.process(dispatchCtx, l, job)
		}
		p.reportDepth()
		return nil
	})
}

func (p *Pipeline) process(ctx context.Context, l *lane, job *Job) {
	ctx = logging.WithDestinationID(logging.WithFeedID(ctx, job.FeedID), job.DestinationID)
	ctx = logging.WithArticleID(ctx, job.ArticleID)
	ctx, span := tracing.Start(ctx, "delivery.process",
		tracing.FeedID(job.FeedID), tracing.DestinationID(job.DestinationID), tracing.ArticleHash(job.ArticleIDHash))
	defer span.End()

	dest, err := p.dir.Get(ctx, job.DestinationID)
	if err != nil {
		p.finish(ctx, l, job, Classification{
			Result:    ResultFailed,
			Status:    outcomes.StatusFailed,
			ErrorCode: outcomes.ErrorCodeInternal,
			Comment:   err.Error(),
		}, Response{})
		return
	}
	if !dest.HasEndpoint() {
		p.finish(ctx, l, job, Classification{
			Result:    ResultFailed,
			Status:    outcomes.StatusFailed,
			ErrorCode: outcomes.ErrorCodeNoChannelOrWebhook,
			Comment:   commentNoEndpoint,
		}, Response{})
		return
	}

	target := Target{
		ChannelID: dest.ChannelID,
		Webhook:   dest.Webhook,
		Forum:     dest.Settings.Template.Forum,
		ThreadID:  job.ThreadID,
	}

	job.Attempts++
	var resp Response
	for _, msg := range job.remaining() {
		resp = p.dispatch(ctx, target, msg)

		c := Classify(resp, job.Attempts, p.cfg.MaxAttempts)
		if c.Result != ResultDelivered {
			p.finish(ctx, l, job, c, resp)
			return
		}

		job.Sent++
		if target.Forum && job.ThreadID == "" {
			job.ThreadID = threadIDFrom(resp.Body)
			target.ThreadID = job.ThreadID
		}
	}

	p.finish(ctx, l, job, Classification{Result: ResultDelivered, Status: outcomes.StatusSent}, resp)
}

func (p *Pipeline) dispatch(ctx context.Context, target Target, msg formatter.Message) Response {
	timeout := p.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = dispatchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp := p.dispatcher.Dispatch(ctx, target, msg)

	result := "error"
	if resp.StatusCode != 0 {
		result = fmt.Sprintf("%dxx", resp.StatusCode/100)
	}
	metrics.ObserveDispatchDuration(result, time.Since(start))
	return resp
}

func (p *Pipeline) finish(ctx context.Context, l *lane, job *Job, c Classification, resp Response) {
	metrics.IncDelivery(c.Result.String())

	switch c.Result {
	case ResultBacklogged:
		l.queue.pushBacklog(job)
		p.logger.WarnwCtx(ctx, "Delivery deferred to backlog",
			"job_id", job.ID,
			"attempts", job.Attempts,
			"status_code", resp.StatusCode,
			"error", resp.Err,
		)
		return
	case ResultRateLimited:
		p.logger.WarnwCtx(ctx, "Delivery rate limited by the chat API, dropping for this cycle",
			"job_id", job.ID,
		)
		return
	case ResultFailed:
		p.logger.ErrorwCtx(ctx, "Delivery failed",
			"job_id", job.ID,
			"status_code", resp.StatusCode,
			"error_code", c.ErrorCode,
			"comment", c.Comment,
		)
	case ResultRejected:
		p.logger.WarnwCtx(ctx, "Delivery rejected",
			"job_id", job.ID,
			"status_code", resp.StatusCode,
			"error_code", c.ErrorCode,
		)
	}

	now := p.clock.Now().UTC()
	p.rec.record(ctx, &outcomes.Outcome{
		FeedID:         job.FeedID,
		DestinationID:  job.DestinationID,
		ArticleID:      job.ArticleID,
		ArticleIDHash:  job.ArticleIDHash,
		Delivered:      c.Result == ResultDelivered,
		Status:         c.Status,
		ErrorCode:      c.ErrorCode,
		ResponseStatus: resp.StatusCode,
		Comment:        c.Comment,
		Timestamp:      now,
	})

	if c.Event != "" {
		p.rec.publish(ctx, Event{
			Type:          c.Event,
			FeedID:        job.FeedID,
			DestinationID: job.DestinationID,
			ArticleID:     job.ArticleID,
			ResponseBody:  resp.Body,
			Timestamp:     now,
		})
	}
}

func (p *Pipeline) runAllowanceResets(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.cfg.AllowanceWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			p.mu.Lock()
			for _, l := range p.lanes {
				l.allowance.reset()
			}
			p.mu.Unlock()
		}
	}
}

func (p *Pipeline) reportDepth() {
	p.mu.Lock()
	lanes := make([]*lane, 0, len(p.lanes))
	for _, l := range p.lanes {
		lanes = append(lanes, l)
	}
	p.mu.Unlock()

	var total Depth
	for _, l := range lanes {
		d := l.queue.depth()
		total.Pending += d.Pending
		total.Backlog += d.Backlog
	}
	metrics.SetDeliveryQueueDepth("pending", total.Pending)
	metrics.SetDeliveryQueueDepth("backlog", total.Backlog)
}
