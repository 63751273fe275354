package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/mindbloss/internal/app/routing"
	"github.com/PabloGalante/mindbloss/internal/catalog"
	"github.com/PabloGalante/mindbloss/internal/domain"
)

type routeOutput struct {
	Rule     string                  `json:"rule"`
	Persona  string                  `json:"persona"`
	Protocol string                  `json:"protocol"`
	Priority string                  `json:"priority"`
	Crisis   bool                    `json:"crisis"`
	Support  []domain.SupportContact `json:"support_contacts,omitempty"`
	Steps    []domain.Step           `json:"steps"`
}

func newRouteCmd(c *cli) *cobra.Command {
	var (
		mood     int
		emotions []string
		hour     int
	)

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Show which persona and protocol a check-in would get",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mood < domain.MinMood || mood > domain.MaxMood {
				return domain.ErrInvalidMood
			}
			if hour < 0 {
				hour = time.Now().In(c.cfg.Location()).Hour()
			}
			if hour > 23 {
				return domain.ErrInvalidHour
			}

			reg, err := catalog.Load(c.cfg.CatalogPath)
			if err != nil {
				return err
			}
			d := routing.NewRouter(reg).Route(mood, emotions, hour)

			out := routeOutput{
				Rule:     d.Rule,
				Persona:  d.Persona.Name,
				Protocol: d.Protocol.Name,
				Priority: string(d.Priority),
				Crisis:   d.Crisis,
				Steps:    d.Protocol.Steps,
			}
			if d.Crisis {
				out.Support = reg.SupportContacts()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&mood, "mood", 5, "mood score 0-10")
	cmd.Flags().StringSliceVar(&emotions, "emotions", nil, "comma separated emotion tags")
	cmd.Flags().IntVar(&hour, "hour", -1, "local hour 0-23 (default: now)")
	return cmd
}
