package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/tourdesk/internal/core/domain"
	"github.com/vietddude/tourdesk/internal/trips"
	"github.com/vietddude/tourdesk/internal/upload"
)

const dateFormat = "2006-01-02"

var (
	tripTitle       string
	tripDestination string
	tripStart       string
	tripEnd         string
)

var tripCmd = &cobra.Command{
	Use:   "trip",
	Short: "Manage trips",
}

var tripListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all trips",
	Run:   runTripList,
}

var tripGetCmd = &cobra.Command{
	Use:   "get [trip_id]",
	Short: "Show one trip and its documents",
	Args:  cobra.ExactArgs(1),
	Run:   runTripGet,
}

var tripCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a trip",
	Run:   runTripCreate,
}

var tripDeleteCmd = &cobra.Command{
	Use:   "delete [trip_id]",
	Short: "Delete a trip and everything that belongs to it",
	Args:  cobra.ExactArgs(1),
	Run:   runTripDelete,
}

var tripCoverCmd = &cobra.Command{
	Use:   "cover [trip_id] [file]",
	Short: "Replace the cover image of a trip",
	Args:  cobra.ExactArgs(2),
	Run:   runTripCover,
}

func init() {
	tripCreateCmd.Flags().StringVar(&tripTitle, "title", "", "trip title")
	tripCreateCmd.Flags().StringVar(&tripDestination, "destination", "", "trip destination")
	tripCreateCmd.Flags().StringVar(&tripStart, "start", "", "start date (YYYY-MM-DD)")
	tripCreateCmd.Flags().StringVar(&tripEnd, "end", "", "end date (YYYY-MM-DD)")
	_ = tripCreateCmd.MarkFlagRequired("title")

	tripCmd.AddCommand(tripListCmd, tripGetCmd, tripCreateCmd, tripDeleteCmd, tripCoverCmd)
	rootCmd.AddCommand(tripCmd)
}

func runTripList(cmd *cobra.Command, args []string) {
	cfg := setup()
	ctx := context.Background()
	app := openApp(ctx, cfg)
	defer app.Close()

	list, err := app.Trips.List(ctx)
	if err != nil {
		fail(app, "Failed to list trips", err)
	}
	if len(list) == 0 {
		fmt.Println("No trips")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tDESTINATION\tSTART\tEND\tCOVER")
	for _, t := range list {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Title, t.Destination, formatDate(t.StartDate), formatDate(t.EndDate), coverName(t))
	}
	_ = w.Flush()
}

func runTripGet(cmd *cobra.Command, args []string) {
	cfg := setup()
	ctx := context.Background()
	app := openApp(ctx, cfg)
	defer app.Close()

	t, err := app.Trips.Get(ctx, args[0])
	if err != nil {
		fail(app, "Failed to load trip", err)
	}
	printTrip(t)

	docs, err := app.Trips.Documents(ctx, t.ID)
	if err != nil {
		fail(app, "Failed to load documents", err)
	}
	if len(docs) == 0 {
		return
	}
	fmt.Println("\nDocuments:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "NAME\tLOCATOR\tADDED")
	for _, d := range docs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", d.Asset.DisplayName, d.Asset.Locator, d.CreatedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
}

func runTripCreate(cmd *cobra.Command, args []string) {
	cfg := setup()
	ctx := context.Background()

	in := trips.NewTrip{Title: tripTitle, Destination: tripDestination}
	var err error
	if in.StartDate, err = parseDate(tripStart); err != nil {
		fail(nil, "Invalid --start", err)
	}
	if in.EndDate, err = parseDate(tripEnd); err != nil {
		fail(nil, "Invalid --end", err)
	}

	app := openApp(ctx, cfg)
	defer app.Close()

	t, err := app.Trips.Create(ctx, in)
	if err != nil {
		fail(app, "Failed to create trip", err)
	}
	printTrip(t)
}

func runTripDelete(cmd *cobra.Command, args []string) {
	cfg := setup()
	ctx := context.Background()
	app := openApp(ctx, cfg)
	defer app.Close()

	if err := app.Trips.Delete(ctx, args[0]); err != nil {
		fail(app, "Failed to delete trip", err)
	}
	fmt.Printf("Deleted trip %s\n", args[0])
}

func runTripCover(cmd *cobra.Command, args []string) {
	cfg := setup()
	ctx := context.Background()

	asset, err := readAsset(args[1])
	if err != nil {
		fail(nil, "Failed to read file", err)
	}

	app := openApp(ctx, cfg)
	defer app.Close()

	selection := &upload.Selection{}
	selection.Select(asset, args[1])

	t, err := app.Trips.ChangeCover(ctx, args[0], asset, selection)
	if err != nil {
		fail(app, "Failed to change cover", err)
	}
	printTrip(t)
}

func printTrip(t *domain.Trip) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "ID:\t%s\n", t.ID)
	_, _ = fmt.Fprintf(w, "Title:\t%s\n", t.Title)
	_, _ = fmt.Fprintf(w, "Destination:\t%s\n", t.Destination)
	_, _ = fmt.Fprintf(w, "Dates:\t%s .. %s\n", formatDate(t.StartDate), formatDate(t.EndDate))
	if t.Cover != nil {
		_, _ = fmt.Fprintf(w, "Cover:\t%s (%s)\n", t.Cover.DisplayName, t.Cover.Locator)
	}
	_ = w.Flush()
}

func coverName(t *domain.Trip) string {
	if t.Cover == nil {
		return "-"
	}
	return t.Cover.DisplayName
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateFormat)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateFormat, s)
}
