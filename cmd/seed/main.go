package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/sngm3741/formsg-intake/api/internal/config"
	mongodoc "github.com/sngm3741/formsg-intake/api/internal/infrastructure/mongo"
	"github.com/sngm3741/formsg-intake/api/internal/submission/application"
	"github.com/sngm3741/formsg-intake/api/internal/submission/domain"
)

type seedOptions struct {
	configPath string
	count      int
	drop       bool
	randomSeed int64
}

var (
	firstNames = []string{"Jane", "John", "Mei Ling", "Ahmad", "Priya", "Wei Jie"}
	lastNames  = []string{"Doe", "Tan", "Lim", "Abdullah", "Nair", "Ong"}
)

func newRootCmd() *cobra.Command {
	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Insert sample form responses for local development",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "optional YAML config file")
	cmd.Flags().IntVar(&opts.count, "count", 10, "number of responses to insert")
	cmd.Flags().BoolVar(&opts.drop, "drop", false, "drop the response collection first")
	cmd.Flags().Int64Var(&opts.randomSeed, "seed", 1, "random seed for generated answers")
	return cmd
}

func run(ctx context.Context, opts seedOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	client, err := mongodoc.Connect(ctx, cfg.MongoURI, cfg.Timeout)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	db := client.Database(cfg.MongoDatabase)
	if opts.drop {
		if err := db.Collection(cfg.ResponseCollection).Drop(ctx); err != nil {
			return fmt.Errorf("drop %s: %w", cfg.ResponseCollection, err)
		}
		cfg.ServerLog.Infof("dropped collection %s", cfg.ResponseCollection)
	}

	fields := domain.FieldIDs{
		FirstName:  cfg.Fields.FirstName,
		LastName:   cfg.Fields.LastName,
		PostalCode: cfg.Fields.PostalCode,
	}
	commands := application.NewSubmissionCommandService(
		mongodoc.NewResponseRepository(db, cfg.ResponseCollection),
		fields,
	)

	rng := rand.New(rand.NewSource(opts.randomSeed))
	for i := 0; i < opts.count; i++ {
		record, err := commands.Submit(ctx, application.SubmitCommand{
			Submission:   sampleSubmission(rng, fields),
			SubmissionID: fmt.Sprintf("seed-%04d", i),
		})
		if err != nil {
			return err
		}
		cfg.ServerLog.Debugf("inserted %s %s (%s)", record.FirstName, record.LastName, record.ID)
	}

	cfg.ServerLog.Infof("inserted %d sample responses into %s.%s", opts.count, cfg.MongoDatabase, cfg.ResponseCollection)
	return nil
}

func sampleSubmission(rng *rand.Rand, fields domain.FieldIDs) *domain.DecryptedSubmission {
	return &domain.DecryptedSubmission{Responses: []domain.Answer{
		{ID: fields.FirstName, Question: "First name", FieldType: "textfield", Value: firstNames[rng.Intn(len(firstNames))]},
		{ID: fields.LastName, Question: "Last name", FieldType: "textfield", Value: lastNames[rng.Intn(len(lastNames))]},
		{ID: fields.PostalCode, Question: "Postal code", FieldType: "number", Value: fmt.Sprintf("%06d", rng.Intn(1000000))},
	}}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
