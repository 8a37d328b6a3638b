package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pierrick-fonquerne/trading-bot/internal/config"
)

const defaultConfigPath = "config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		cfg = config.Default()
	}

	for {
		fmt.Println("\n=== Trading Bot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit strategy windows")
		fmt.Println("3) Edit loop and risk knobs")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch bot")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editStrategy(reader, cfg)
		case "3":
			editLoop(reader, cfg)
		case "4":
			if err := config.Save(defaultConfigPath, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "config invalid, fix before launch: %v\n", err)
				continue
			}
			launchBot(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Exchange: %s (testnet=%t)\n", cfg.Exchange.Name, cfg.Exchange.Testnet)
	fmt.Printf("Symbol: %s (%s/%s)\n", cfg.Exchange.Symbol, cfg.Exchange.BaseAsset, cfg.Exchange.QuoteAsset)
	fmt.Printf("Strategy: %s short=%d long=%d\n", cfg.Strategy.Mode, cfg.Strategy.ShortWindow, cfg.Strategy.LongWindow)
	fmt.Printf("Poll interval: %.1fs | trade quantity: %g | max history: %d\n", cfg.Bot.PollIntervalSecs, cfg.Bot.TradeQuantity, cfg.Bot.MaxHistory)
	fmt.Printf("Execution mode: %s\n", cfg.Bot.Mode)
	fmt.Printf("Per-trade notional cap: $%.2f\n", cfg.Risk.MaxNotionalPerTrade)
}

func editStrategy(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Strategy ---")
	cfg.Strategy.ShortWindow = int(promptFloat(reader, "Short window", float64(cfg.Strategy.ShortWindow)))
	cfg.Strategy.LongWindow = int(promptFloat(reader, "Long window", float64(cfg.Strategy.LongWindow)))
	if cfg.Bot.MaxHistory < cfg.Strategy.LongWindow {
		cfg.Bot.MaxHistory = cfg.Strategy.LongWindow
		fmt.Printf("max history raised to %d to cover the long window\n", cfg.Bot.MaxHistory)
	}
}

func editLoop(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Loop / Risk ---")
	cfg.Bot.PollIntervalSecs = promptFloat(reader, "Poll interval (secs)", cfg.Bot.PollIntervalSecs)
	cfg.Bot.TradeQuantity = promptFloat(reader, "Trade quantity", cfg.Bot.TradeQuantity)
	cfg.Bot.MaxHistory = int(promptFloat(reader, "Max history", float64(cfg.Bot.MaxHistory)))
	cfg.Risk.MaxNotionalPerTrade = promptFloat(reader, "Max notional per trade (USD)", cfg.Risk.MaxNotionalPerTrade)

	fmt.Printf("Execution mode [%s]: ", cfg.Bot.Mode)
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		cfg.Bot.Mode = strings.ToLower(strings.TrimSpace(line))
	}
}

func launchBot(reader *bufio.Reader) {
	fmt.Println("Launching bot (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/bot")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start bot: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the bot and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%g]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %g\n", current)
		return current
	}
	return val
}

func loadConfig() (*config.Config, error) {
	return config.Load(defaultConfigPath)
}
