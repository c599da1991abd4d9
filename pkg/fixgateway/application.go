package fixgateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/joripage/exposure-gate/pkg/admission/model"
	"github.com/joripage/exposure-gate/pkg/idgen"
	"github.com/joripage/exposure-gate/pkg/logging"
	"github.com/joripage/exposure-gate/pkg/metrics"
	"github.com/joripage/go_util/pkg/shardqueue"
	"github.com/quickfixgo/enum"
	fix42nos "github.com/quickfixgo/fix42/newordersingle"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"go.uber.org/zap"
)

const (
	DispatchInline = "inline"
	DispatchQueue  = "queue"
	DispatchShard  = "shard"
)

// Admitter decides a single order. *admission.Service implements it.
type Admitter interface {
	Admit(ctx context.Context, req model.OrderRequest) model.AdmissionResult
}

type AppConfig struct {
	DispatchMode string
	NumShards    int
	QueueSize    int
}

// Application implements the quickfix.Application interface
type Application struct {
	*quickfix.MessageRouter
	cfg        AppConfig
	admitter   Admitter
	ids        idgen.Generator
	logger     *logging.Logger
	dispatcher chan *inboundMsg
	shardQueue *shardqueue.Shardqueue
	send       func(quickfix.Messagable, quickfix.SessionID) error

	// mu guards stopped; enqueues hold it shared so stop never closes a
	// queue under a sender.
	mu      sync.RWMutex
	stopped bool
}

type inboundMsg struct {
	msg       *quickfix.Message
	sessionID quickfix.SessionID
}

func newApplication(cfg AppConfig, admitter Admitter, ids idgen.Generator, logger *logging.Logger) *Application {
	if cfg.NumShards <= 0 {
		cfg.NumShards = 16
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100_000
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	app := &Application{
		MessageRouter: quickfix.NewMessageRouter(),
		cfg:           cfg,
		admitter:      admitter,
		ids:           ids,
		logger:        logger,
		send:          quickfix.SendToTarget,
	}

	app.AddRoute(fix44nos.Route(app.onNewOrderSingle44))
	app.AddRoute(fix42nos.Route(app.onNewOrderSingle42))

	switch cfg.DispatchMode {
	case DispatchShard:
		app.shardQueue = shardqueue.NewShardQueue(cfg.NumShards, cfg.QueueSize)
		app.shardQueue.Start(func(msg interface{}) error {
			if v, ok := msg.(*inboundMsg); ok {
				app.route(v)
			}
			return nil
		})
	case DispatchQueue:
		app.dispatcher = make(chan *inboundMsg, cfg.QueueSize)
		go app.runDispatcher()
	}

	return app
}

// OnCreate implemented as part of Application interface
func (a *Application) OnCreate(sessionID quickfix.SessionID) {
	a.logger.Info(context.Background(), "fix session created", zap.String("session", sessionID.String()))
}

// OnLogon implemented as part of Application interface
func (a *Application) OnLogon(sessionID quickfix.SessionID) {
	a.logger.Info(context.Background(), "fix session logon", zap.String("session", sessionID.String()))
}

// OnLogout implemented as part of Application interface
func (a *Application) OnLogout(sessionID quickfix.SessionID) {
	a.logger.Info(context.Background(), "fix session logout", zap.String("session", sessionID.String()))
}

// ToAdmin implemented as part of Application interface
func (a *Application) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}

// ToApp implemented as part of Application interface
func (a *Application) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	if msgType, err := msg.Header.GetString(tag.MsgType); err == nil {
		metrics.FixMessagesTotal.WithLabelValues("out", msgType).Inc()
	}
	return nil
}

// FromAdmin implemented as part of Application interface
func (a *Application) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

// FromApp implemented as part of Application interface, uses Router on incoming application messages
func (a *Application) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	if msgType, err := msg.Header.GetString(tag.MsgType); err == nil {
		metrics.FixMessagesTotal.WithLabelValues("in", msgType).Inc()
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.stopped {
		a.logger.Warn(context.Background(), "fix gateway stopped, dropping message",
			zap.String("session", sessionID.String()),
		)
		return nil
	}

	switch {
	case a.shardQueue != nil:
		a.shardQueue.Shard(getRoutingKey(msg, sessionID), &inboundMsg{msg, sessionID})
		return nil
	case a.dispatcher != nil:
		a.dispatcher <- &inboundMsg{msg, sessionID}
		return nil
	}

	return a.Route(msg, sessionID)
}

// getRoutingKey keeps every order for one symbol on the same shard so they
// reach the ledger in arrival order.
func getRoutingKey(msg *quickfix.Message, sessionID quickfix.SessionID) string {
	if symbol, err := msg.Body.GetString(tag.Symbol); err == nil && symbol != "" {
		return symbol
	}
	return sessionID.String()
}

func (a *Application) runDispatcher() {
	for msg := range a.dispatcher {
		a.route(msg)
	}
}

func (a *Application) route(in *inboundMsg) {
	if err := a.Route(in.msg, in.sessionID); err != nil {
		a.logger.Warn(context.Background(), "route error",
			zap.String("session", in.sessionID.String()),
			zap.Error(err),
		)
	}
}

func (a *Application) stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.stopped = true

	if a.dispatcher != nil {
		close(a.dispatcher)
	}
	if a.shardQueue != nil {
		a.shardQueue.Stop()
	}
}

func (a *Application) onNewOrderSingle44(msg fix44nos.NewOrderSingle, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	req, rawSide := orderRequestFromFIX44(msg)
	report := a.admit(&req, rawSide, false)
	return a.reply(report.ToFIX44(), report, sessionID)
}

func (a *Application) onNewOrderSingle42(msg fix42nos.NewOrderSingle, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	req, rawSide := orderRequestFromFIX42(msg)
	report := a.admit(&req, rawSide, true)
	return a.reply(report.ToFIX42(), report, sessionID)
}

func (a *Application) admit(req *model.OrderRequest, rawSide enum.Side, fix42 bool) *ExecReport {
	ctx := logging.WithRequestID(context.Background(), req.ClOrdID)
	res := a.admitter.Admit(ctx, *req)
	return newExecReport(a.ids.Next(), a.ids.Next(), req, rawSide, res, fix42)
}

func (a *Application) reply(msg quickfix.Messagable, report *ExecReport, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	if err := a.send(msg, sessionID); err != nil {
		a.logger.Error(context.Background(), "send execution report failed",
			zap.String("cl_ord_id", report.ClOrdID),
			zap.String("order_id", report.OrderID),
			zap.Error(fmt.Errorf("send to %s: %w", sessionID, err)),
		)
	}
	return nil
}
