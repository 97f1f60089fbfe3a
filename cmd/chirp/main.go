package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	serverrun "github.com/ajdavis/chirp/internal/cmd/server"
	cfgpkg "github.com/ajdavis/chirp/internal/config"
	pebblestore "github.com/ajdavis/chirp/internal/storage/pebble"
	logpkg "github.com/ajdavis/chirp/pkg/log"
)

func main() {
	level := os.Getenv("CHIRP_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "chirp",
		Short: "Chirp message board CLI",
		Long:  "Chirp is a single-binary real-time message board. This CLI runs the server and posts, lists, clears, and tails chirps.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the chirp server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			httpAddr, _ := cmd.Flags().GetString("http")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			fsyncIntervalMs, _ := cmd.Flags().GetInt("fsync-interval-ms")
			configPath, _ := cmd.Flags().GetString("config")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			var mode pebblestore.FsyncMode
			switch fsyncMode {
			case "never":
				mode = pebblestore.FsyncModeNever
			case "interval":
				mode = pebblestore.FsyncModeInterval
			case "always":
				mode = pebblestore.FsyncModeAlways
			default:
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:       dataDir,
				HTTPAddr:      httpAddr,
				Fsync:         mode,
				FsyncInterval: time.Duration(fsyncIntervalMs) * time.Millisecond,
				Config:        cfg,
				LogLevel:      logLevel,
				LogFormat:     logFormat,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("http", ":8080", "HTTP listen address")
	serverStartCmd.Flags().String("fsync", "never", "Fsync mode: always|interval|never")
	serverStartCmd.Flags().Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms")
	serverStartCmd.Flags().String("config", "", "Config file (JSON or YAML)")
	serverStartCmd.Flags().String("log-level", os.Getenv("CHIRP_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("CHIRP_LOG_FORMAT"), "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// post
	postCmd := &cobra.Command{
		Use:   "post <message>",
		Short: "Post a chirp",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := strings.Join(args, " ")
			resp, err := http.Post(apiURL()+"/new", "text/plain", strings.NewReader(msg))
			if err != nil {
				return err
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			fmt.Println("status:", resp.Status)
			return nil
		},
	}
	rootCmd.AddCommand(postCmd)

	// list
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent chirps, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(apiURL() + "/chirps")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			var chirps []struct {
				ID  string `json:"id"`
				Msg string `json:"msg"`
				Ts  string `json:"ts"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&chirps); err != nil {
				return err
			}
			for _, c := range chirps {
				fmt.Printf("%s  %s\n", c.Ts, c.Msg)
			}
			return nil
		},
	}
	rootCmd.AddCommand(listCmd)

	// clear
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every chirp",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Post(apiURL()+"/clear", "text/plain", nil)
			if err != nil {
				return err
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			fmt.Println("status:", resp.Status)
			return nil
		},
	}
	rootCmd.AddCommand(clearCmd)

	// tail
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow the live chirp feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			wsURL := strings.Replace(apiURL(), "http", "ws", 1) + "/tail"
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			if err != nil {
				return fmt.Errorf("dial %s: %w", wsURL, err)
			}
			defer conn.Close()

			if filter != "" {
				intent, _ := json.Marshal(map[string]string{"intent": "set_filter", "filter": filter})
				if err := conn.WriteMessage(websocket.TextMessage, intent); err != nil {
					return err
				}
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			go func() {
				<-ctx.Done()
				_ = conn.Close()
			}()

			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				var frame struct {
					Event string          `json:"event"`
					Data  json.RawMessage `json:"data"`
				}
				if err := json.Unmarshal(data, &frame); err != nil {
					continue
				}
				switch frame.Event {
				case "chirps":
					var payload struct {
						Chirps []struct {
							Ts  string `json:"ts"`
							Msg string `json:"msg"`
						} `json:"chirps"`
					}
					if err := json.Unmarshal(frame.Data, &payload); err != nil {
						continue
					}
					for _, c := range payload.Chirps {
						fmt.Printf("%s  %s\n", c.Ts, c.Msg)
					}
				case "cleared":
					fmt.Println("-- board cleared --")
				case "app_error":
					var msg string
					_ = json.Unmarshal(frame.Data, &msg)
					fmt.Fprintln(os.Stderr, "server error:", msg)
				}
			}
		},
	}
	tailCmd.Flags().String("filter", "", "CEL expression; only matching chirps are shown (e.g. 'text.contains(\"go\")')")
	rootCmd.AddCommand(tailCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("CHIRP_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
