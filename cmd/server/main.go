package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jdoherty/chatserver/internal/api"
	"github.com/jdoherty/chatserver/internal/config"
	"github.com/jdoherty/chatserver/internal/database"
	"github.com/jdoherty/chatserver/internal/email"
	"github.com/jdoherty/chatserver/internal/server"
	"github.com/jdoherty/chatserver/internal/stats"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	frontendURL    string
	allowedOrigins stringSliceFlag
	smtpHost       string
	smtpPort       int
	smtpUser       string
	smtpPassword   string
	smtpFrom       string
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", "", "base64 encoded signing key")
	flag.StringVar(&frontendURL, "frontend-url", "http://localhost:3000", "base URL used in invitation links")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.StringVar(&smtpHost, "smtp-host", "localhost", "SMTP server host")
	flag.IntVar(&smtpPort, "smtp-port", 587, "SMTP server port")
	flag.StringVar(&smtpUser, "smtp-user", "", "SMTP username")
	flag.StringVar(&smtpPassword, "smtp-password", "", "SMTP password")
	flag.StringVar(&smtpFrom, "smtp-from", "noreply@localhost", "invitation email sender address")
	flag.Parse()

	logger := log.New(os.Stderr, "[chatserver] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, frontendURL, allowedOrigins, config.SMTPConfig{
		Host:     smtpHost,
		Port:     smtpPort,
		Username: smtpUser,
		Password: smtpPassword,
		From:     smtpFrom,
	})
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatServer := server.NewChatServer(logger, statsUpdater)

	mailer := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)

	srv := api.NewChatApp(mux, logger, chatServer, dbConn, mailer, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down relay...")
	chatServer.Shutdown()

	logger.Println("shutdown complete")
}
