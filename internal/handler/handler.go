// Package handler implements the HTTP quote API.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-discounts/internal/domain/cart"
	"github.com/xenking/kart-discounts/internal/domain/pricing"
	"github.com/xenking/kart-discounts/internal/wire"
)

// QuotePath is the route of the quote endpoint.
const QuotePath = "/api/v1/quote"

const defaultMaxBodyBytes = 1 << 20

// Calculator prices a cart.
type Calculator interface {
	CalculateCartDiscounts(
		ctx context.Context,
		items []cart.Item,
		customer *cart.Customer,
		payment *cart.Payment,
		voucherCode string,
	) (*pricing.Result, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// MaxBodyBytes limits the request body. Zero means 1 MiB.
	MaxBodyBytes int64
}

// Handler serves quote requests.
type Handler struct {
	calc    Calculator
	maxBody int64
	tracer  trace.Tracer
	quotes  metric.Int64Counter
}

// New constructs a Handler.
func New(cfg Config, calc Calculator, tp trace.TracerProvider, mp metric.MeterProvider) (*Handler, error) {
	meter := mp.Meter("github.com/xenking/kart-discounts/internal/handler")
	quotes, err := meter.Int64Counter("kart.quotes",
		metric.WithDescription("Quote requests by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create quotes counter")
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Handler{
		calc:    calc,
		maxBody: maxBody,
		tracer:  tp.Tracer("github.com/xenking/kart-discounts/internal/handler"),
		quotes:  quotes,
	}, nil
}

// Register adds the handler's routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+QuotePath, h.Quote)
}

// Quote decodes a cart, prices it and writes the result.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Quote")
	defer span.End()

	id := uuid.NewString()
	span.SetAttributes(attribute.String("kart.quote_id", id))
	lg := zctx.From(ctx).With(zap.String("quote_id", id))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		h.fail(ctx, w, span, "read", http.StatusBadRequest, errors.Wrap(err, "read body"))
		return
	}
	q, err := wire.DecodeQuote(jx.DecodeBytes(body))
	if err != nil {
		h.fail(ctx, w, span, "decode", http.StatusBadRequest, err)
		return
	}
	span.SetAttributes(attribute.Int("kart.items", len(q.Items)))

	res, err := h.calc.CalculateCartDiscounts(ctx, q.Items, q.Customer, q.Payment, q.VoucherCode)
	if err != nil {
		if errors.Is(err, cart.ErrInvalidCart) {
			h.fail(ctx, w, span, "invalid_cart", http.StatusUnprocessableEntity, err)
			return
		}
		lg.Error("Calculate discounts", zap.Error(err))
		h.fail(ctx, w, span, "error", http.StatusInternalServerError, errors.New("internal error"))
		return
	}

	h.quotes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	lg.Debug("Quote computed",
		zap.String("original", res.OriginalPrice.StringFixed(2)),
		zap.String("final", res.FinalPrice.StringFixed(2)),
		zap.Int("applied", len(res.Applied)),
	)

	var e jx.Encoder
	wire.EncodeResult(&e, id, res)
	writeJSON(w, http.StatusOK, e.Bytes())
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, span trace.Span, outcome string, code int, err error) {
	h.quotes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	span.SetStatus(codes.Error, outcome)
	if code < http.StatusInternalServerError {
		span.RecordError(err)
	}

	var e jx.Encoder
	wire.EncodeError(&e, code, err.Error())
	writeJSON(w, code, e.Bytes())
}

func writeJSON(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
