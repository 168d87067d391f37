package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ckdserve/internal/artifact"
	"ckdserve/internal/common/fsutil"
	"ckdserve/internal/config"
	"ckdserve/internal/httpapi"
	"ckdserve/internal/predict"
	"ckdserve/pkg/types"
)

// offlineService loads the configured artifact once for commands that run
// predictions outside the server.
func offlineService(cfg config.Config) (*predict.Service, *artifact.Artifact, error) {
	path, err := fsutil.ResolvePath(cfg.ArtifactPath)
	if err != nil {
		return nil, nil, err
	}
	labels, err := fitLabels(cfg)
	if err != nil {
		return nil, nil, err
	}
	store := artifact.NewStore(artifact.StoreConfig{Path: path, Labels: labels})
	a, err := store.EnsureFresh()
	if err != nil {
		return nil, nil, err
	}
	svc, err := predict.New(predict.Config{Store: store})
	if err != nil {
		return nil, nil, err
	}
	return svc, a, nil
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load the artifact and run the built-in test cases against it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			svc, a, err := offlineService(cfg)
			if err != nil {
				return err
			}
			return describe(cmd.Context(), cmd.OutOrStdout(), svc, a)
		},
	}
}

func describe(ctx context.Context, w io.Writer, svc *predict.Service, a *artifact.Artifact) error {
	fmt.Fprintf(w, "artifact: %s\n", a.Path)
	fmt.Fprintf(w, "modified: %s\n", a.ModTime.Format(time.ANSIC))
	fmt.Fprintf(w, "features: %s\n", strings.Join(a.Features, ","))
	fmt.Fprintf(w, "classes:  %v\n", a.Classes())
	fmt.Fprintf(w, "trees:    %d\n", a.Trees)
	for _, id := range predict.FixtureIDs() {
		res, err := svc.PredictFixture(ctx, id, "cli")
		if err != nil {
			return fmt.Errorf("test case %d: %w", id, err)
		}
		fmt.Fprintf(w, "case %d:   %s (%.4f)\n", id, res.Class, res.Confidence)
	}
	return nil
}

func newFixtureCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "fixture <id>",
		Short:   "Print the JSON response of GET /test_case/{id} without starting the server",
		Example: "  ckdserve fixture 1 --artifact ./ckd_model.json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("test case id %q: not an integer", args[0])
			}
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			svc, _, err := offlineService(cfg)
			if err != nil {
				return err
			}
			res, err := svc.PredictFixture(cmd.Context(), id, "cli")
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(types.TestCaseResponse{
				CaseID:      res.CaseID,
				Input:       res.Input,
				Prediction:  res.Class,
				Probability: httpapi.RoundProbability(res.Confidence),
				Timestamp:   res.ProducedAt.Format(httpapi.TimestampLayout),
				Client:      res.Client,
			})
		},
	}
}
