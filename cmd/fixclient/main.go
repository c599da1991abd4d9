package main

import (
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joripage/exposure-gate/pkg/idgen"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	fix44er "github.com/quickfixgo/fix44/executionreport"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type orderFlags struct {
	symbol string
	side   string
	qty    string
	price  string
	count  int
}

type InitiatorApp struct {
	*quickfix.MessageRouter
	order orderFlags
	ids   idgen.Generator
}

func newInitiatorApp(order orderFlags) *InitiatorApp {
	app := &InitiatorApp{
		MessageRouter: quickfix.NewMessageRouter(),
		order:         order,
		ids:           idgen.NewSequence("CL"),
	}
	app.AddRoute(fix44er.Route(app.onExecutionReport))
	return app
}

func (a *InitiatorApp) OnCreate(sessionID quickfix.SessionID) {}

func (a *InitiatorApp) OnLogon(sessionID quickfix.SessionID) {
	zap.S().Infow("Logon success", "session", sessionID.String())
	for i := 0; i < a.order.count; i++ {
		if err := a.sendNewOrderSingle(sessionID); err != nil {
			zap.S().Errorf("send order: %v", err)
		}
	}
}

func (a *InitiatorApp) OnLogout(sessionID quickfix.SessionID)                       {}
func (a *InitiatorApp) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}
func (a *InitiatorApp) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}
func (a *InitiatorApp) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}
func (a *InitiatorApp) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return a.Route(msg, sessionID)
}

func (a *InitiatorApp) onExecutionReport(msg fix44er.ExecutionReport, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	clOrdID, _ := msg.GetClOrdID()
	orderID, _ := msg.GetOrderID()
	status, _ := msg.GetOrdStatus()
	text, _ := msg.GetText()

	if status == enum.OrdStatus_REJECTED {
		reason, _ := msg.GetOrdRejReason()
		zap.S().Warnw("order rejected", "cl_ord_id", clOrdID, "order_id", orderID, "reason", reason, "text", text)
		return nil
	}
	zap.S().Infow("order accepted", "cl_ord_id", clOrdID, "order_id", orderID)
	return nil
}

func (a *InitiatorApp) sendNewOrderSingle(sessionID quickfix.SessionID) error {
	side := enum.Side_BUY
	if strings.EqualFold(a.order.side, "sell") {
		side = enum.Side_SELL
	}

	qty, err := decimal.NewFromString(a.order.qty)
	if err != nil {
		return err
	}
	price, err := decimal.NewFromString(a.order.price)
	if err != nil {
		return err
	}

	order := fix44nos.New(
		field.NewClOrdID(a.ids.Next()),
		field.NewSide(side),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(enum.OrdType_LIMIT))
	order.SetSymbol(a.order.symbol)
	order.SetOrderQty(qty, 0)
	order.SetPrice(price, 2)
	order.SetTimeInForce(enum.TimeInForce_DAY)

	return quickfix.SendToTarget(order, sessionID)
}

func main() {
	var cfgPath string
	var order orderFlags
	flag.StringVar(&cfgPath, "config-file", "./config/fixclient.cfg", "quickfix initiator settings")
	flag.StringVar(&order.symbol, "symbol", "PETR4", "order symbol")
	flag.StringVar(&order.side, "side", "buy", "buy or sell")
	flag.StringVar(&order.qty, "qty", "100", "order quantity")
	flag.StringVar(&order.price, "price", "10.00", "limit price")
	flag.IntVar(&order.count, "count", 1, "orders to send after logon")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync() // nolint
	zap.ReplaceGlobals(logger)

	zap.S().Infow("starting initiator", "cfgPath", cfgPath)

	cfg, err := os.Open(cfgPath)
	if err != nil {
		zap.S().Fatal(err)
	}
	defer cfg.Close() // nolint

	settings, err := quickfix.ParseSettings(cfg)
	if err != nil {
		zap.S().Fatal(err)
	}

	app := newInitiatorApp(order)
	logFactory, err := file.NewLogFactory(settings)
	if err != nil {
		zap.S().Fatal(err)
	}
	initiator, err := quickfix.NewInitiator(app, quickfix.NewMemoryStoreFactory(), settings, logFactory)
	if err != nil {
		zap.S().Fatal(err)
	}
	if err := initiator.Start(); err != nil {
		zap.S().Fatal(err)
	}
	defer initiator.Stop()
	zap.S().Info("Initiator started...")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
