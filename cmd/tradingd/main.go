/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command tradingd runs the trading pipeline unattended: it loads
// config.yaml, builds the FIX gateway and the full orchestrator component
// graph, registers the two concrete strategies, and blocks until an
// interrupt signal triggers a clean shutdown.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ByteBard/prime-ctp-go/audit"
	"github.com/ByteBard/prime-ctp-go/config"
	"github.com/ByteBard/prime-ctp-go/domain"
	"github.com/ByteBard/prime-ctp-go/orchestrator"
	"github.com/ByteBard/prime-ctp-go/session"
	"github.com/ByteBard/prime-ctp-go/strategy"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	auditDBPath := flag.String("audit-db", "./audit.db", "path to the compliance audit sqlite database")
	instrumentID := flag.String("instrument", "", "instrument id the orchestrator's manual operator surface targets")
	flag.Parse()

	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("service", "tradingd").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	auditLogger, err := audit.NewLogger(cfg.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open audit log")
	}
	auditLogger.StartRotation()
	defer auditLogger.Stop()

	catalog := domain.NewInstrumentCatalogue()

	gateway := session.NewFixGateway(mapFixConfig(cfg.Connection), catalog, auditLogger.System())

	orch, err := orchestrator.New(orchestrator.Deps{
		Config:       cfg,
		Log:          auditLogger.System(),
		Catalog:      catalog,
		Gateway:      gateway,
		AuditDBPath:  *auditDBPath,
		InstrumentID: *instrumentID,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	registerStrategies(orch, *instrumentID, gateway, catalog, auditLogger.System())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, 30*time.Second)
	defer startCancel()
	if err := orch.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to start orchestrator")
	}

	log.Info().Msg("tradingd running, press ctrl-c to stop")
	<-ctx.Done()

	log.Info().Msg("shutting down")
	orch.Shutdown()
}

// mapFixConfig bridges config.ConnectionConfig's CTP-style field names
// onto session.FixConfig's brokerage-neutral ones: investor id doubles as
// the FIX SenderCompID and API key, broker id as the TargetCompID, and
// the auth code as the passphrase, matching how the source's ctp_gateway
// folds broker/investor/app/auth-code credentials into one login call.
func mapFixConfig(c config.ConnectionConfig) session.FixConfig {
	return session.FixConfig{
		APIKey:       c.InvestorID,
		APISecret:    c.Password,
		Passphrase:   c.AuthCode,
		SenderCompID: c.InvestorID,
		TargetCompID: c.BrokerID,
		PortfolioID:  c.AppID,
	}
}

// registerStrategies builds and registers the two concrete strategy
// engines the spec names. A nil strategy.Predictor falls back to the
// staged strategy's own 0.5-probability default, since tradingd ships
// with no trained model client wired in — an operator wanting live
// predictions supplies one via a future deployment-specific build flag.
func registerStrategies(orch *orchestrator.Orchestrator, instrumentID string, gateway session.Gateway, catalog *domain.InstrumentCatalogue, log zerolog.Logger) {
	if instrumentID == "" {
		return
	}

	tickSize := decimal.Decimal{}
	if inst, ok := catalog.Get(instrumentID); ok {
		tickSize = inst.PriceTick
	}

	ofiBase := strategy.NewBase("ofi", gateway, orch.Validator(), orch.OrderMonitor(), orch.TradingGate(), log)
	ofi := strategy.NewOFIStrategy(ofiBase, strategy.DefaultOFIConfig(instrumentID, tickSize))
	orch.Strategies().Register("ofi", ofi, nil)

	stagedBase := strategy.NewBase("staged", gateway, orch.Validator(), orch.OrderMonitor(), orch.TradingGate(), log)
	staged := strategy.NewStagedStrategy(stagedBase, strategy.DefaultStagedConfig(instrumentID), nil)
	orch.Strategies().Register("staged", staged, nil)
}
