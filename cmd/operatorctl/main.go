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

// Command operatorctl is a standalone interactive console wrapping an
// orchestrator.Orchestrator: a human operator pauses/resumes trading,
// submits or cancels orders, and reads system status without touching
// the FIX session directly. It builds and connects its own gateway and
// orchestrator rather than attaching to an already-running tradingd,
// since spec.md names no transport for the operator surface — only the
// operations themselves — and running a second exchange session
// alongside tradingd mirrors how the source's console tooling talks to
// the broker directly rather than through the strategy process. No
// strategies are registered here; start_strategy/stop_strategy operate
// on whatever a future deployment registers through Orchestrator.Strategies().
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ByteBard/prime-ctp-go/audit"
	"github.com/ByteBard/prime-ctp-go/config"
	"github.com/ByteBard/prime-ctp-go/domain"
	"github.com/ByteBard/prime-ctp-go/orchestrator"
	"github.com/ByteBard/prime-ctp-go/session"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	auditDBPath := flag.String("audit-db", "./audit.db", "path to the compliance audit sqlite database")
	instrumentID := flag.String("instrument", "", "instrument id the open/close commands target")
	flag.Parse()

	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("service", "operatorctl").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}

	auditLogger, err := audit.NewLogger(cfg.Log)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to open audit log")
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
		zlog.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()
	if err := orch.Start(startCtx); err != nil {
		zlog.Fatal().Err(err).Msg("failed to start orchestrator")
	}
	defer orch.Shutdown()

	repl(orch)
}

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

// repl drives the console's read-eval-print loop, adapted from
// fixclient/repl.go: a readline prefix completer plus a command-name
// switch, generalized from FIX order-entry/market-data commands to the
// orchestrator's pause/resume/cancel/status surface.
func repl(orch *orchestrator.Orchestrator) {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("open_long"),
		readline.PcItem("open_short"),
		readline.PcItem("close_long"),
		readline.PcItem("close_short"),
		readline.PcItem("cancel_order"),
		readline.PcItem("pause_trading"),
		readline.PcItem("resume_trading"),
		readline.PcItem("cancel_all_orders"),
		readline.PcItem("emergency_stop"),
		readline.PcItem("get_system_status"),
		readline.PcItem("strategies"),
		readline.PcItem("start_strategy"),
		readline.PcItem("stop_strategy"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "operator> ",
		HistoryFile:     "/tmp/operatorctl_history",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Printf("failed to create readline: %v", err)
		return
	}
	defer rl.Close()

	ctx := context.Background()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "open_long":
			handleOpen(ctx, orch, parts, orch.OpenLong)
		case "open_short":
			handleOpen(ctx, orch, parts, orch.OpenShort)
		case "close_long":
			handleClose(ctx, orch, parts, orch.CloseLong)
		case "close_short":
			handleClose(ctx, orch, parts, orch.CloseShort)
		case "cancel_order":
			handleCancelOrder(ctx, orch, parts)
		case "pause_trading":
			handlePauseTrading(orch, parts)
		case "resume_trading":
			handleResumeTrading(orch, parts)
		case "cancel_all_orders":
			handleCancelAllOrders(ctx, orch, parts)
		case "emergency_stop":
			handleEmergencyStop(ctx, orch, parts)
		case "get_system_status":
			handleGetSystemStatus(orch)
		case "strategies":
			handleStrategies(orch)
		case "start_strategy":
			handleStrategyControl(orch, parts, orch.Strategies().Start)
		case "stop_strategy":
			handleStrategyControl(orch, parts, orch.Strategies().Stop)
		case "help":
			displayHelp()
		case "exit", "quit":
			return
		default:
			fmt.Println("Unknown command. Type 'help' for available commands.")
		}
	}
}

func handleOpen(ctx context.Context, orch *orchestrator.Orchestrator, parts []string, op func(context.Context, decimal.Decimal, int) (string, error)) {
	if len(parts) < 3 {
		fmt.Println("Usage: open_long|open_short <price> <volume>")
		return
	}
	price, volume, ok := parsePriceVolume(parts[1], parts[2])
	if !ok {
		return
	}
	clOrdID, err := op(ctx, price, volume)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Submitted: %s\n", clOrdID)
}

func handleClose(ctx context.Context, orch *orchestrator.Orchestrator, parts []string, op func(context.Context, decimal.Decimal, int, bool) (string, error)) {
	if len(parts) < 3 {
		fmt.Println("Usage: close_long|close_short <price> <volume> [--today]")
		return
	}
	price, volume, ok := parsePriceVolume(parts[1], parts[2])
	if !ok {
		return
	}
	closeToday := len(parts) > 3 && parts[3] == "--today"
	clOrdID, err := op(ctx, price, volume, closeToday)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Submitted: %s\n", clOrdID)
}

func parsePriceVolume(priceStr, volumeStr string) (decimal.Decimal, int, bool) {
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		fmt.Printf("Error: invalid price %q\n", priceStr)
		return decimal.Decimal{}, 0, false
	}
	volume, err := strconv.Atoi(volumeStr)
	if err != nil {
		fmt.Printf("Error: invalid volume %q\n", volumeStr)
		return decimal.Decimal{}, 0, false
	}
	return price, volume, true
}

func handleCancelOrder(ctx context.Context, orch *orchestrator.Orchestrator, parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: cancel_order <clOrdId>")
		return
	}
	if err := orch.CancelOrder(ctx, parts[1]); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Cancel request sent")
}

func handlePauseTrading(orch *orchestrator.Orchestrator, parts []string) {
	reason := "operator request"
	if len(parts) > 1 {
		reason = strings.Join(parts[1:], " ")
	}
	if orch.PauseTrading(reason) {
		fmt.Println("Trading paused")
	} else {
		fmt.Println("Trading was already paused")
	}
}

func handleResumeTrading(orch *orchestrator.Orchestrator, parts []string) {
	reason := "operator request"
	if len(parts) > 1 {
		reason = strings.Join(parts[1:], " ")
	}
	if orch.ResumeTrading(reason) {
		fmt.Println("Trading resumed")
	} else {
		fmt.Println("Trading was not paused")
	}
}

func handleCancelAllOrders(ctx context.Context, orch *orchestrator.Orchestrator, parts []string) {
	reason := "operator request"
	if len(parts) > 1 {
		reason = strings.Join(parts[1:], " ")
	}
	results := orch.CancelAllOrders(ctx, reason)
	if len(results) == 0 {
		fmt.Println("No pending orders")
		return
	}
	for clOrdID, ok := range results {
		status := "ok"
		if !ok {
			status = "FAILED"
		}
		fmt.Printf("  %s: %s\n", clOrdID, status)
	}
}

func handleEmergencyStop(ctx context.Context, orch *orchestrator.Orchestrator, parts []string) {
	reason := "operator request"
	if len(parts) > 1 {
		reason = strings.Join(parts[1:], " ")
	}
	orch.EmergencyStop(ctx, reason)
	fmt.Println("Emergency stop executed: trading paused, strategies stopped, pending orders cancelled")
}

func handleGetSystemStatus(orch *orchestrator.Orchestrator) {
	status := orch.GetSystemStatus()

	fmt.Printf("Connection: %s (healthy=%v, reconnects=%d)\n",
		status.Connection.CurrentState, status.Connection.IsHealthy, status.Connection.ReconnectCount)
	fmt.Printf("Trading paused: %v\n", status.TradingPaused)
	fmt.Printf("Active strategies: %s\n", strings.Join(status.ActiveStrategy, ", "))
	fmt.Printf("Total order count: %d\n", status.TotalOrderCount)
	fmt.Printf("Host load: cpu=%.1f%% mem=%.1f%%\n", status.CPUPercent, status.MemPercent)

	if len(status.RecentBreaches) > 0 {
		fmt.Println("Recent threshold breaches:")
		for _, b := range status.RecentBreaches {
			fmt.Printf("  [%s] %s: %s\n", b.Level, b.Kind, b.Message)
		}
	}
	if len(status.RecentAlerts) > 0 {
		fmt.Println("Recent alerts:")
		for _, a := range status.RecentAlerts {
			fmt.Printf("  [%s] %s: %s\n", a.Level, a.Type, a.Message)
		}
	}
	if len(status.EmergencyEvents) > 0 {
		fmt.Println("Recent emergency events:")
		for _, e := range status.EmergencyEvents {
			fmt.Printf("  [%s] success=%v: %s\n", e.Action, e.Success, e.Reason)
		}
	}
}

func handleStrategies(orch *orchestrator.Orchestrator) {
	statuses := orch.Strategies().AllStatus()
	if len(statuses) == 0 {
		fmt.Println("No strategies registered")
		return
	}
	for name, s := range statuses {
		fmt.Printf("  %-10s active=%v\n", name, s.Active)
	}
}

func handleStrategyControl(orch *orchestrator.Orchestrator, parts []string, op func(string) error) {
	if len(parts) < 2 {
		fmt.Println("Usage: start_strategy|stop_strategy <name>")
		return
	}
	if err := op(parts[1]); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("ok")
}

func displayHelp() {
	fmt.Print(`Commands:
  open_long <price> <volume>                  - Submit a buy-open order
  open_short <price> <volume>                 - Submit a sell-open order
  close_long <price> <volume> [--today]       - Submit a sell-close order
  close_short <price> <volume> [--today]      - Submit a buy-close order
  cancel_order <clOrdId>                      - Cancel one order
  pause_trading [reason]                      - Pause order submission
  resume_trading [reason]                     - Resume order submission
  cancel_all_orders [reason]                  - Cancel every pending order
  emergency_stop [reason]                     - Pause, stop all strategies, cancel all
  get_system_status                           - Print connection/compliance/strategy status
  strategies                                  - List registered strategies
  start_strategy <name>                       - Start a registered strategy
  stop_strategy <name>                        - Stop a registered strategy
  help                                        - Show this message
  exit                                        - Quit
`)
}
