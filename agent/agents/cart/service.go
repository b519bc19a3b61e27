package cart

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/johnson2500/retail-shopping-assistant/agent/contract"
	statex "github.com/johnson2500/retail-shopping-assistant/agent/state"
	logx "github.com/johnson2500/retail-shopping-assistant/pkg/logger"
	metricsx "github.com/johnson2500/retail-shopping-assistant/pkg/metrics"
)

// Config is loaded with the AGENT prefix. The transcript is kept only in the
// returned State unless PersistContext is set.
type Config struct {
	PersistContext bool `envconfig:"PERSIST_CONTEXT" split_words:"true" default:"false"`
}

type Option func(*Agent)

func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

func WithMetrics(m *metricsx.Recorder) Option {
	return func(a *Agent) {
		a.metrics = m
	}
}

// Agent handles add, remove and view requests against a user's cart.
// It is safe for concurrent use.
type Agent struct {
	classifier contractx.IntentClassifier
	resolver   contractx.Resolver
	store      contractx.CartStore

	graphRunner compose.Runnable[statex.State, statex.State]

	persistContext bool
	metrics        *metricsx.Recorder
	now            func() time.Time
}

func New(
	classifier contractx.IntentClassifier,
	resolver contractx.Resolver,
	store contractx.CartStore,
	cfg Config,
	opts ...Option,
) (*Agent, error) {
	if classifier == nil {
		return nil, errors.New("intent classifier is required")
	}
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if store == nil {
		return nil, errors.New("cart store is required")
	}

	a := &Agent{
		classifier:     classifier,
		resolver:       resolver,
		store:          store,
		persistContext: cfg.PersistContext,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	graphRunner, err := a.compileInvokeGraph(context.Background())
	if err != nil {
		return nil, err
	}
	a.graphRunner = graphRunner

	return a, nil
}

// Invoke runs one cart turn. On failure it returns the zero State and the
// error; the input is never modified.
func (a *Agent) Invoke(ctx context.Context, in statex.State) (statex.State, error) {
	start := time.Now()

	out, err := a.graphRunner.Invoke(ctx, in.Clone())
	elapsed := time.Since(start).Seconds()
	if err != nil {
		a.metrics.ObserveInvocation(string(contractx.AgentTypeCart), "error", elapsed)
		logx.FromContext(ctx).Error().Err(err).Int64("user_id", in.UserID).Msg("cart invocation failed")
		return statex.State{}, err
	}

	a.metrics.ObserveInvocation(string(contractx.AgentTypeCart), "ok", elapsed)
	logx.FromContext(ctx).Info().
		Int64("user_id", out.UserID).
		Str("response", out.Response).
		Float64("elapsed", out.Timings["cart"]).
		Msg("cart invocation finished")
	return out, nil
}
