package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flare-risk-server/internal/domain"
)

func newPredictCmd(app *App) *cobra.Command {
	req := domain.DefaultPredictionRequest()
	var (
		sessionID                                                  string
		foodTrigger, stress, previousSymptoms, abdominalPain, bloating string
		asJSON                                                     bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score today's inputs for flare-up risk",
		Long: "Score today's inputs for flare-up risk and append the result to the symptom log.\n" +
			"Severities are one of: None, Mild, Moderate, High, Severe/Extreme.",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.FoodTrigger = domain.SeverityLevel(foodTrigger)
			req.Stress = domain.SeverityLevel(stress)
			req.PreviousSymptoms = domain.SeverityLevel(previousSymptoms)
			req.AbdominalPain = domain.SeverityLevel(abdominalPain)
			req.Bloating = domain.SeverityLevel(bloating)

			prediction, err := app.Predictor.Predict(cmd.Context(), sessionID, req)
			if err != nil {
				return err
			}
			if app.Recorder != nil {
				app.Recorder.Wait()
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(prediction)
			}

			fmt.Fprintln(out, verdictLine(prediction.FlareLikely))
			fmt.Fprintln(out, prediction.Advice.Headline)
			fmt.Fprintln(out, styleDim.Render("Tip: "+prediction.Advice.Tip))
			fmt.Fprintln(out)

			rows := make([][]string, 0, domain.FeatureCount)
			for i, name := range domain.FeatureNames {
				rows = append(rows, []string{name, strconv.FormatFloat(prediction.Vector[i], 'g', -1, 64)})
			}
			fmt.Fprint(out, renderTable([]string{"FEATURE", "VALUE"}, rows))

			if prediction.Triggers.Len() > 0 {
				fmt.Fprintf(out, "\nTriggers: %s\n", strings.Join(prediction.Triggers.Items(), ", "))
			}
			fmt.Fprintf(out, "Logged %s\n", strings.Join(prediction.Record.Row(), " | "))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&sessionID, "session", "cli", "Session whose rolling log receives the record")
	flags.StringVar(&foodTrigger, "food-trigger", string(domain.SeverityNone), "Food trigger severity")
	flags.StringVar(&stress, "stress", string(domain.SeverityNone), "Stress severity")
	flags.StringVar(&previousSymptoms, "previous-symptoms", string(domain.SeverityNone), "Severity of symptoms on previous days")
	flags.StringVar(&abdominalPain, "abdominal-pain", string(domain.SeverityNone), "Abdominal pain severity")
	flags.StringVar(&bloating, "bloating", string(domain.SeverityNone), "Bloating severity")
	flags.Float64Var(&req.SleepHours, "sleep", domain.DefaultSleepHours, "Hours slept (3 to 10)")
	flags.Float64Var(&req.WaterLiters, "water", domain.DefaultWaterLiters, "Liters of water (0.5 to 5)")
	flags.BoolVar(&req.Exercised, "exercised", false, "Exercised today")
	flags.StringArrayVar(&req.ManualTriggers, "trigger", nil, "Trigger food from the catalog (repeatable)")
	flags.StringVar(&req.FoodsEaten, "foods", "", "Comma-separated foods eaten today")
	flags.BoolVar(&req.RomeCriteriaMet, "rome", false, "Rome IV criteria met")
	flags.BoolVar(&asJSON, "json", false, "Print the prediction as JSON")

	return cmd
}

func newSeveritiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "severities",
		Short: "List the severity scale",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := domain.SeverityCatalog()
			rows := make([][]string, 0, len(catalog))
			for _, info := range catalog {
				rows = append(rows, []string{string(info.Name), strconv.Itoa(info.Score), info.Description})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"LEVEL", "SCORE", "DESCRIPTION"}, rows))
			return nil
		},
	}
}

func newTriggersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triggers",
		Short: "Trigger food catalog and detection",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the common trigger foods and the detection keywords",
			RunE: func(cmd *cobra.Command, args []string) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Common triggers: %s\n", strings.Join(domain.CommonTriggerChoices, ", "))
				fmt.Fprintf(out, "Detection keywords: %s\n", strings.Join(app.Predictor.Detector().Keywords(), ", "))
				return nil
			},
		},
		&cobra.Command{
			Use:   "detect <foods>",
			Short: "Detect likely triggers in a comma-separated list of foods",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				detected := app.Predictor.Detector().Detect(args[0])
				out := cmd.OutOrStdout()
				if detected.Len() == 0 {
					fmt.Fprintln(out, "No likely triggers detected")
					return nil
				}
				fmt.Fprintf(out, "Detected %d likely trigger(s): %s\n", detected.Len(), strings.Join(detected.Items(), ", "))
				return nil
			},
		},
	)

	return cmd
}
