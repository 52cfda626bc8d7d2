package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"rentchain-backend/internal/config"
	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/ledger"
	"rentchain-backend/internal/logger"
	"rentchain-backend/internal/repository/postgres"
	"rentchain-backend/internal/security"
	"rentchain-backend/internal/service"
	"rentchain-backend/internal/storage"
)

// operator is the identity rentctl acts as for admin-scoped operations.
var operator = domain.Actor{ID: "rentctl", Role: domain.RoleAdmin}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "rentctl",
		Short:         "RentChain operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.dev.yaml", "Path to configuration file")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger.Initialize(cfg.Log.Level, cfg.Log.Format)
		return cfg, nil
	}

	root.AddCommand(
		migrateCmd(load),
		verifyCmd(load),
		staleCmd(load),
		pinCmd(load),
		tokenCmd(load),
	)
	return root
}

type configLoader func() (*config.Config, error)

func migrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := postgres.Open(cmd.Context(), cfg.GetDatabaseConnectionString())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

// agreementService builds an AgreementService for read-only audit commands.
func agreementService(cmd *cobra.Command, cfg *config.Config) (service.AgreementService, func(), error) {
	db, err := postgres.Open(cmd.Context(), cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, nil, err
	}
	store := postgres.NewStore(db)
	contentStore, err := storage.New(cfg.Storage)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	notary, err := ledger.Dial(cmd.Context(), cfg.Ledger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	svc := service.NewAgreementService(
		store.OfferRepository,
		store.AgreementRepository,
		store.NotarizationRepository,
		contentStore,
		notary,
		nil,
		nil,
		nil,
		service.AgreementOptions{
			RentDecimals: cfg.Ledger.RentDecimals,
			Location:     cfg.Location(),
			StaleAfter:   cfg.StaleNotarizationAfter(),
		},
	)
	closeFn := func() {
		notary.Close()
		db.Close()
	}
	return svc, closeFn, nil
}

func verifyCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <agreement-id>...",
		Short: "Compare stored agreements with their on-chain records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			svc, closeFn, err := agreementService(cmd, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			mismatched := 0
			for _, id := range args {
				v, err := svc.VerifyAgreement(cmd.Context(), operator, id)
				if err != nil {
					return fmt.Errorf("verify %s: %w", id, err)
				}
				status := "OK"
				if !v.Verified {
					status = "MISMATCH"
					mismatched++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-36s  %-8s  chain_id=%d  cid=%s  tx=%s\n",
					v.AgreementID, status, v.OnChainID, v.ContentID, v.TxHash)
			}
			if mismatched > 0 {
				return fmt.Errorf("%d agreement(s) do not match the ledger", mismatched)
			}
			return nil
		},
	}
}

func staleCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "stale",
		Short: "List notarizations stuck before their agreement was recorded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			svc, closeFn, err := agreementService(cmd, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			rows, err := svc.ListStaleNotarizations(cmd.Context(), operator)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		},
	}
}

func pinCmd(load configLoader) *cobra.Command {
	var name, mimeType string

	cmd := &cobra.Command{
		Use:   "pin <file>",
		Short: "Pin a file to the content store and print its content id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(args[0])
			}
			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(args[0]))
			}
			if mimeType == "" {
				mimeType = "application/octet-stream"
			}

			store, err := storage.New(cfg.Storage)
			if err != nil {
				return err
			}
			cid, err := store.PinBlob(cmd.Context(), data, name, mimeType)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cid)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Pin name (defaults to the file name)")
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "Content type (defaults to the extension's type)")
	return cmd
}

func tokenCmd(load configLoader) *cobra.Command {
	var email, role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			r := domain.Role(role)
			if !r.Valid() {
				return fmt.Errorf("invalid role %q", role)
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.JWT.AccessTokenExpiry) * time.Minute
			}
			tm := security.NewTokenManager(cfg.JWT.Secret, ttl)
			token, err := tm.GenerateAccessToken(args[0], email, string(r))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleTenant), "Role claim (OWNER, TENANT or ADMIN)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to the configured expiry)")
	return cmd
}
