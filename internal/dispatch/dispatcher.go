package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"mailcannon/internal"
	"mailcannon/internal/theseus"
)

type OrderCreator interface {
	CreateWarehouseOrder(ctx context.Context, payload theseus.Payload) (*theseus.OrderResponse, error)
}

// Sink receives outcomes in row order.
type Sink interface {
	Add(outcome internal.OrderOutcome)
}

type Options struct {
	SKUs   []string
	Tags   []string
	Delay  time.Duration
	DryRun bool
}

type Dispatcher struct {
	creator OrderCreator
	opts    Options
	pacer   *Pacer
	log     *zap.Logger
	now     func() time.Time
}

func New(creator OrderCreator, opts Options, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		creator: creator,
		opts:    opts,
		pacer:   NewPacer(opts.Delay),
		log:     log,
		now:     time.Now,
	}
}

// Run sends rows one at a time in order. A failed row is recorded and the
// batch moves on; only cancellation of ctx stops it early, in which case rows
// not yet attempted produce no outcome.
func (d *Dispatcher) Run(ctx context.Context, rows []internal.OrderRow, sink Sink) error {
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload := theseus.BuildPayload(row, d.opts.SKUs, d.opts.Tags)
		request, _ := json.Marshal(payload)

		if d.opts.DryRun {
			d.log.Info("[DRY RUN] would send",
				zap.Int("row", row.Row),
				zap.String("email", row.Email),
				zap.Int("sku_lines", len(payload.Contents)),
			)
			d.log.Debug("[DRY RUN] payload", zap.Int("row", row.Row), zap.ByteString("payload", request))
			sink.Add(internal.OrderOutcome{
				Row:      row.Row,
				Email:    row.Email,
				Status:   internal.OutcomeDryRun,
				Request:  request,
				SKULines: len(payload.Contents),
			})
			continue
		}

		if err := d.pacer.WaitTurn(ctx); err != nil {
			return err
		}

		d.log.Info("sending",
			zap.Int("row", row.Row),
			zap.Int("n", i+1),
			zap.Int("of", len(rows)),
			zap.String("email", row.Email),
			zap.Int("sku_lines", len(payload.Contents)),
		)
		sink.Add(d.send(ctx, row, payload, request))
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, row internal.OrderRow, payload theseus.Payload, request json.RawMessage) internal.OrderOutcome {
	start := d.now()
	resp, err := d.creator.CreateWarehouseOrder(ctx, payload)
	outcome := internal.OrderOutcome{
		Row:        row.Row,
		Email:      row.Email,
		Request:    request,
		SKULines:   len(payload.Contents),
		DurationMs: d.now().Sub(start).Milliseconds(),
	}

	if err == nil {
		outcome.Status = internal.OutcomeSent
		outcome.OrderID = resp.OrderID
		outcome.HTTPStatus = resp.StatusCode
		outcome.Response = resp.Body
		d.log.Info("SUCCESS",
			zap.Int("row", row.Row),
			zap.String("order_id", resp.OrderID),
			zap.String("email", row.Email),
		)
		return outcome
	}

	outcome.Status = internal.OutcomeFailed
	outcome.Error = err.Error()
	var apiErr *theseus.APIError
	if errors.As(err, &apiErr) {
		outcome.HTTPStatus = apiErr.StatusCode
		outcome.Response = apiErr.JSON()
		d.log.Error("FAILED",
			zap.Int("row", row.Row),
			zap.String("email", row.Email),
			zap.Int("http_status", apiErr.StatusCode),
			zap.String("response", apiErr.Summary()),
		)
		return outcome
	}
	d.log.Error("FAILED", zap.Int("row", row.Row), zap.String("email", row.Email), zap.Error(err))
	return outcome
}
