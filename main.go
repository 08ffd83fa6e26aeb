package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/room4-2/frontdesk/config"
	"github.com/room4-2/frontdesk/dialogue"
	"github.com/room4-2/frontdesk/gemini"
	"github.com/room4-2/frontdesk/ledger"
	"github.com/room4-2/frontdesk/notify"
	"github.com/room4-2/frontdesk/platform"
	"github.com/room4-2/frontdesk/server"
	"github.com/room4-2/frontdesk/session"
	"github.com/room4-2/frontdesk/sheets"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load the business profile (built-in defaults when no YAML is set)
	profile, err := config.LoadProfile(cfg.BusinessProfile)
	if err != nil {
		log.Fatalf("Failed to load business profile: %v", err)
	}
	log.Printf("🤖 %s ready for %s (%d fields to collect)",
		profile.BotName, profile.BusinessName, len(profile.Fields))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session store
	store, err := session.NewStore(cfg, profile.HistoryWindow)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}
	go store.StartCleanupRoutine(ctx)

	// Gemini client
	model, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMTimeout)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer model.Close()

	// Booking sheet (only when SHEET_ID is set)
	var appender dialogue.RowAppender
	if cfg.SheetID != "" {
		rec, err := sheets.New(ctx, sheets.Opts{
			SheetID:   cfg.SheetID,
			Range:     cfg.SheetRange,
			CredsPath: cfg.SheetsCredsPath,
			Columns:   profile.ColumnOrder(),
		})
		if err != nil {
			log.Fatalf("Failed to set up the booking sheet: %v", err)
		}
		appender = rec
	} else {
		log.Println("📝 SHEET_ID not set, committed bookings stay in the ledger only")
	}

	// Booking ledger ("off" disables it)
	var lstore *ledger.Store
	if cfg.LedgerDSN != "off" {
		lstore, err = ledger.Open(cfg.LedgerDSN)
		if err != nil {
			log.Fatalf("Failed to open the ledger: %v", err)
		}
		defer lstore.Close()
	} else {
		log.Println("📝 Ledger disabled")
	}

	// Moderator alerts always hit the log; Slack and Discord are optional.
	fan := notify.Fanout{notify.LogNotifier{}}
	if cfg.SlackToken != "" {
		sl, err := notify.NewSlack(notify.SlackOpts{BotToken: cfg.SlackToken, Channel: cfg.SlackChannel})
		if err != nil {
			log.Fatalf("Failed to set up Slack alerts: %v", err)
		}
		fan = append(fan, sl)
		log.Printf("🔔 Slack alerts on %s", cfg.SlackChannel)
	}
	if cfg.DiscordToken != "" {
		dc, err := notify.NewDiscord(notify.DiscordOpts{BotToken: cfg.DiscordToken, ChannelID: cfg.DiscordChannelID})
		if err != nil {
			log.Fatalf("Failed to set up Discord alerts: %v", err)
		}
		fan = append(fan, dc)
		log.Printf("🔔 Discord alerts on channel %s", cfg.DiscordChannelID)
	}

	// Daily digest needs the ledger for its counts
	if profile.Digest.Enabled && lstore != nil {
		digest, err := notify.NewDigest(lstore, fan, profile.Digest.Schedule)
		if err != nil {
			log.Fatalf("Failed to schedule the digest: %v", err)
		}
		digest.Start(ctx)
	}

	var recorder dialogue.Ledger
	if lstore != nil {
		recorder = lstore
	}
	orch := dialogue.NewOrchestrator(profile, store, model, appender, fan, recorder)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	switch cfg.ServerType {
	case "webhook":
		sender, err := platform.NewGraph(platform.GraphOpts{PageID: cfg.PageID, AccessToken: cfg.PageAccessToken})
		if err != nil {
			log.Fatalf("Failed to set up the Instagram sender: %v", err)
		}
		srv := server.NewWebhook(cfg, profile, orch, sender, store)

		go func() {
			<-sigChan
			log.Println("\nReceived shutdown signal...")
			cancel()
			store.Shutdown()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("Webhook server shutdown error: %v", err)
			}
		}()

		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Fatalf("Webhook server error: %v", err)
		}

	case "console":
		srv := server.NewConsole(cfg, profile, orch, store)

		go func() {
			<-sigChan
			log.Println("\nReceived shutdown signal...")
			cancel()
			store.Shutdown()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("Console server shutdown error: %v", err)
			}
		}()

		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Fatalf("Console server error: %v", err)
		}

	case "both":
		sender, err := platform.NewGraph(platform.GraphOpts{PageID: cfg.PageID, AccessToken: cfg.PageAccessToken})
		if err != nil {
			log.Fatalf("Failed to set up the Instagram sender: %v", err)
		}
		webhookSrv := server.NewWebhook(cfg, profile, orch, sender, store)
		consoleSrv := server.NewConsole(cfg, profile, orch, store)

		go func() {
			<-sigChan
			log.Println("\nReceived shutdown signal...")
			cancel()
			store.Shutdown()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := webhookSrv.Shutdown(shutdownCtx); err != nil {
				log.Printf("Webhook server shutdown error: %v", err)
			}
			if err := consoleSrv.Shutdown(shutdownCtx); err != nil {
				log.Printf("Console server shutdown error: %v", err)
			}
		}()

		// Start the console in the background
		go func() {
			if err := consoleSrv.Start(); err != nil && err.Error() != "http: Server closed" {
				log.Fatalf("Console server error: %v", err)
			}
		}()

		// Webhook server blocks
		if err := webhookSrv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Fatalf("Webhook server error: %v", err)
		}

	default:
		log.Fatalf("Unknown SERVER_TYPE: %s", cfg.ServerType)
	}

	log.Println("Server stopped")
}
