package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/plasmx/referral-ledger/chain"
	"github.com/plasmx/referral-ledger/config"
	"github.com/plasmx/referral-ledger/database"
	"github.com/plasmx/referral-ledger/handler"
	"github.com/plasmx/referral-ledger/logger"
	"github.com/plasmx/referral-ledger/repository"
	"github.com/plasmx/referral-ledger/router"
	"github.com/plasmx/referral-ledger/service"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config yaml (optional)")
	migrateOnly := pflag.Bool("migrate-only", false, "run database migrations and exit")
	pflag.Parse()

	if err := run(*configPath, *migrateOnly); err != nil {
		fmt.Fprintf(os.Stderr, "referral-ledger: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, migrateOnly bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Output: cfg.Log.Output, File: cfg.Log.File})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	defer logger.Sync()

	redacted := cfg.Redacted()
	log.Info("config loaded", zap.Any("config", redacted))

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	if migrateOnly {
		log.Info("migrations applied")
		return nil
	}

	// 签名私钥：缺省时服务照常启动，只是 vault-info 返回 configured=false
	key, err := service.LoadCustodyKey(cfg.Vault.SignerPrivateKey, cfg.Vault.SignerMnemonic, cfg.Vault.SignerDerivationPath)
	if err != nil {
		return err
	}
	signer, err := service.NewSignerService(cfg.Vault.RemoteSignerURL, cfg.Vault.SignerAddress, key)
	if err != nil {
		return err
	}
	if !signer.Configured() || cfg.Vault.Address == "" {
		log.Warn("voucher signing not configured; sign-voucher will answer 503")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var verifier service.SwapVerifier
	if cfg.Chain.VerifySwaps {
		v, err := chain.Dial(ctx, cfg.Chain.RPCURL)
		if err != nil {
			return err
		}
		verifier = v
		log.Info("swap verification enabled")
	}

	ledgerRepo := repository.NewLedgerRepository(db, cfg.Database.Timeout)
	bindingRepo := repository.NewBindingRepository(db, cfg.Database.Timeout)
	codeRepo := repository.NewCodeRepository(db, cfg.Database.Timeout)

	clock := clockwork.NewRealClock()
	voucherSvc := service.NewVoucherService(ledgerRepo, signer, service.VoucherOptions{
		VaultAddress:   cfg.Vault.Address,
		ChainID:        cfg.Vault.ChainID,
		TTL:            cfg.Vault.VoucherTTL,
		TokenAllowlist: cfg.Vault.TokenAllowlist,
		Clock:          clock,
	})
	accrualSvc := service.NewAccrualService(ledgerRepo, bindingRepo, service.FeePolicy{
		FeeBps:           cfg.Fees.FeeBps,
		ReferrerShareBps: cfg.Fees.ReferrerShareBps,
	}, verifier)
	referralSvc := service.NewReferralService(bindingRepo, codeRepo, ledgerRepo, clock)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.SetupRouter(router.Handlers{
		Voucher:  handler.NewVoucherHandler(voucherSvc),
		Swap:     handler.NewSwapHandler(accrualSvc),
		Referral: handler.NewReferralHandler(referralSvc),
	}, router.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		VoucherLimiter: router.NewRateLimiter(cfg.RateLimit.VoucherPerMinute, cfg.RateLimit.VoucherBurst),
		HealthCheck: func(ctx context.Context) error {
			return repository.Ping(ctx, db, cfg.Database.Timeout)
		},
	})

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		log.Info("referral ledger listening", zap.String("addr", srv.Addr), zap.String("vault", cfg.Vault.Address),
			zap.Int64("chainId", cfg.Vault.ChainID))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
