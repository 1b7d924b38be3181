// --- File: cmd/pushctl/main.go ---
package main

import (
	"context"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tinywideclouds/go-push-client/internal/jsonws"
	"github.com/tinywideclouds/go-push-client/internal/platform/apns"
	"github.com/tinywideclouds/go-push-client/internal/session"
	"github.com/tinywideclouds/go-push-client/internal/storage/cache"
	"github.com/tinywideclouds/go-push-client/pkg/push"
	"github.com/tinywideclouds/go-push-client/pushadapter"
	"github.com/tinywideclouds/go-push-client/pushadapter/config"
)

//go:embed local.yaml
var configFile []byte

const usage = `usage: pushctl <command> [flags] [args]

commands:
  register <token>          register a device token (hex tokens are normalized)
  unregister <token>        unregister a device token
  send -users 1,2 ...       send a notification to users
  receive ...               feed an inbound notification through the adapter
  serve                     run the HTTP bridge
`

func main() {
	_ = godotenv.Load()

	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "pushctl")
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// --- Config Loading ---
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, err := config.NewConfigFromYaml(&yamlCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Adapter ---
	sess := session.New(cfg.ServerURL,
		session.BasicAuth{Username: cfg.Username, Password: cfg.Password},
		session.WithTimeout(cfg.RequestTimeout),
	)

	opts := []pushadapter.Option{
		pushadapter.WithLogger(logger),
		pushadapter.WithPlatform(cfg.Platform),
		pushadapter.WithRegistrationFailureReporting(cfg.ReportRegistrationFailures),
		pushadapter.WithSendFailureReporting(cfg.ReportSendFailures),
	}

	if cfg.Redis.Enabled {
		logger.Info("Initializing Redis registration cache...", "addr", cfg.Redis.Addr)
		redisClient, err := cache.NewRedisClient(ctx, cache.RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Namespace: cfg.Redis.Namespace,
		})
		if err != nil {
			logger.Error("Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		opts = append(opts, pushadapter.WithServiceFactory(func(s *session.Session) push.Service {
			return cache.NewCachedService(newJSONWSClient(logger), s, redisClient, cfg.Redis.TTL, logger)
		}))
	}

	var failed atomic.Bool
	adapter := pushadapter.WithSession(sess, opts...).
		OnSuccess(func(result map[string]any) {
			logger.Info("Call succeeded", "result", result)
		}).
		OnFailure(func(err error) {
			failed.Store(true)
			logger.Error("Call failed", "err", err)
		}).
		OnPushNotification(func(n push.Notification) {
			_ = json.NewEncoder(os.Stdout).Encode(n)
		})

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "register":
		err = runRegister(ctx, adapter, args)
	case "unregister":
		err = runUnregister(ctx, adapter, args)
	case "send":
		err = runSend(ctx, adapter, args)
	case "receive":
		err = runReceive(adapter, args)
	case "serve":
		err = runServe(ctx, adapter, cfg, logger)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		logger.Error("Command failed", "command", cmd, "err", err)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if failed.Load() {
		os.Exit(1)
	}
}

func runRegister(ctx context.Context, adapter *pushadapter.Adapter, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("register takes exactly one token")
	}
	// Hex tokens are re-encoded so the server always sees the canonical form.
	if data, err := hex.DecodeString(args[0]); err == nil {
		adapter.RegisterDeviceTokenData(ctx, data)
		return nil
	}
	adapter.RegisterDeviceToken(ctx, push.DeviceToken(args[0]))
	return nil
}

func runUnregister(ctx context.Context, adapter *pushadapter.Adapter, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("unregister takes exactly one token")
	}
	adapter.UnregisterDeviceToken(ctx, push.DeviceToken(args[0]))
	return nil
}

func runSend(ctx context.Context, adapter *pushadapter.Adapter, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	users := fs.String("users", "", "comma separated user IDs")
	message := fs.String("message", "", "notification message")
	rawJSON := fs.String("json", "", "full notification object (overrides -message)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	userIDs, err := parseUserIDs(*users)
	if err != nil {
		return err
	}

	n := push.Notification{"message": *message}
	if *rawJSON != "" {
		n = push.Notification{}
		if err := decodeJSON(*rawJSON, &n); err != nil {
			return fmt.Errorf("invalid -json: %w", err)
		}
	}

	if len(userIDs) == 1 {
		adapter.SendToUserID(ctx, userIDs[0], n)
	} else {
		adapter.SendToUserIDs(ctx, userIDs, n)
	}
	return nil
}

func runReceive(adapter *pushadapter.Adapter, args []string) error {
	fs := flag.NewFlagSet("receive", flag.ContinueOnError)
	title := fs.String("title", "", "alert title")
	body := fs.String("body", "", "alert body")
	payload := fs.String("payload", "{}", "payload object as JSON")
	raw := fs.String("raw", "", "complete notification as JSON, used as-is")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *raw != "" {
		var n push.Notification
		if err := decodeJSON(*raw, &n); err != nil {
			return fmt.Errorf("invalid -raw: %w", err)
		}
		adapter.DidReceiveRemoteNotification(n)
		return nil
	}

	var data any
	if err := decodeJSON(*payload, &data); err != nil {
		return fmt.Errorf("invalid -payload: %w", err)
	}
	n, err := apns.UserInfo(apns.Alert{Title: *title, Body: *body, Sound: "default"}, data)
	if err != nil {
		return err
	}
	adapter.DidReceiveRemoteNotification(n)
	return nil
}

func runServe(ctx context.Context, adapter *pushadapter.Adapter, cfg *config.Config, logger *slog.Logger) error {
	bridge := pushadapter.NewBridge(cfg, adapter, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP bridge...", "addr", cfg.ListenAddr)
		errCh <- bridge.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return bridge.Shutdown(shutdownCtx)
	}
}

func newJSONWSClient(logger *slog.Logger) func(*session.Session) push.Service {
	return func(s *session.Session) push.Service {
		return jsonws.NewClient(s, logger)
	}
}

// decodeJSON keeps numbers as json.Number so large IDs pass through exactly.
func decodeJSON(raw string, dest any) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dest)
}

func parseUserIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, errors.New("-users is required")
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("-users is required")
	}
	return ids, nil
}
