package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/couchcryptid/pm25-field-data/internal/pipeline"
)

func newSeedCmd(g *globalFlags) *cobra.Command {
	var (
		days  int
		start string
		user  string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Submit sample START and STOP observations for every site",
		Long: "Each site gets one START on every day from --start and the matching STOP\n" +
			"on the following day. Values vary by site and day but are reproducible.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 {
				return errors.New("--days must be > 0")
			}
			first, ok := domain.ParseDate(start)
			if !ok {
				return fmt.Errorf("--start must be a date (YYYY-MM-DD)")
			}

			svc, closeFn, err := openService(cmd.Context(), g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeFn() //nolint:errcheck // best effort on exit

			n, err := seed(cmd, svc, first, days, user)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "submitted %d observations\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 3, "number of sampling days")
	cmd.Flags().StringVar(&start, "start", "2025-01-06", "first sampling day, YYYY-MM-DD")
	cmd.Flags().StringVar(&user, "user", "fieldctl", "username recorded on the rows")
	return cmd
}

func seed(cmd *cobra.Command, svc *pipeline.Service, first time.Time, days int, user string) (int, error) {
	ref := svc.Reference()
	count := 0
	for d := range days {
		day := first.AddDate(0, 0, d)
		for i, site := range ref.Sites {
			k := d*len(ref.Sites) + i
			for _, o := range samplePair(ref, site, day, k) {
				if _, err := svc.SubmitObservation(cmd.Context(), user, o); err != nil {
					return count, fmt.Errorf("site %s day %s: %w", site.ID, day.Format(time.DateOnly), err)
				}
				count++
			}
		}
	}
	return count, nil
}

// samplePair builds a START on day and its STOP 23-25 hours later.
func samplePair(ref domain.Reference, site domain.Site, day time.Time, k int) [2]domain.Observation {
	pick := func(list []string, n int) string {
		if len(list) == 0 {
			return ""
		}
		return list[n%len(list)]
	}
	officers := []string{pick(ref.Officers, k)}
	if len(ref.Officers) > 1 {
		officers = append(officers, pick(ref.Officers, k+1))
	}
	elapsed := 1380 + float64((k*37)%120)
	stopAt := day.Add(8 * time.Hour).Add(time.Duration(elapsed) * time.Minute)

	base := domain.Observation{
		SiteID:           site.ID,
		SiteName:         site.Name,
		Officers:         officers,
		Driver:           "Kwame",
		Temperature:      domain.NumberOf(26 + float64(k%8)),
		RelativeHumidity: domain.NumberOf(60 + float64((k*3)%30)),
		Pressure:         domain.NumberOf(1008 + float64(k%6)),
		Weather:          pick(ref.Weather, k),
		WindSpeed:        fmt.Sprintf("%d km/h", 5+k%15),
		WindDirection:    pick(ref.WindDirections, k),
	}

	startObs := base
	startObs.EntryType = domain.EntryStart
	startObs.Date = day.Format(time.DateOnly)
	startObs.Time = "08:00"
	startObs.ElapsedMinutes = domain.NumberOf(0)
	startObs.FlowRate = domain.NumberOf(16.7)

	stopObs := base
	stopObs.EntryType = domain.EntryStop
	stopObs.Date = stopAt.Format(time.DateOnly)
	stopObs.Time = stopAt.Format("15:04")
	stopObs.ElapsedMinutes = domain.NumberOf(elapsed)
	stopObs.FlowRate = domain.NumberOf(16.4 + float64(k%5)/10)
	stopObs.Weather = pick(ref.Weather, k+1)

	return [2]domain.Observation{startObs, stopObs}
}
