package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"daily-digest/internal/domain/entity"
)

// parseBirthday parses an MM-DD birthday.
func parseBirthday(s string) (month, day int, err error) {
	m, d, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid birthday %q: must be MM-DD", s)
	}
	month, err = strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid birthday %q: month must be 1-12", s)
	}
	day, err = strconv.Atoi(d)
	if err != nil || day < 1 || day > 31 {
		return 0, 0, fmt.Errorf("invalid birthday %q: day must be 1-31", s)
	}
	return month, day, nil
}

func newShowCmd(opts *options) *cobra.Command {
	var (
		sign     string
		birthday string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Fetch and print today's digest.",
		Long: `Fetch the lunar almanac, the horoscope digest and the quotation, then print them.

The category is chosen by --sign (API key such as "Leo"), by --birthday MM-DD,
or defaults to the first category. --all prints every category.`,
		Args: cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if sign != "" && birthday != "" {
				return fmt.Errorf("--sign and --birthday are mutually exclusive")
			}
			if sign != "" {
				if _, ok := entity.FindConstellation(sign); !ok {
					return fmt.Errorf("invalid sign %q", sign)
				}
			}
			if birthday != "" {
				if _, _, err := parseBirthday(birthday); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := opts.poller()
			p.Refresh(cmd.Context())

			switch {
			case birthday != "":
				month, day, _ := parseBirthday(birthday)
				p.SelectByBirthday(month, day)
			case sign != "":
				c, _ := entity.FindConstellation(sign)
				p.Select(c.APIKey)
			}

			selected, ok := p.Selection()
			return render(cmd.OutOrStdout(), opts.output, buildView(p.State(), selected, ok, all))
		},
	}

	cmd.Flags().StringVar(&sign, "sign", "", "category API key, e.g. Aries")
	cmd.Flags().StringVar(&birthday, "birthday", "", "birthday as MM-DD; selects its category")
	cmd.Flags().BoolVar(&all, "all", false, "print every category")
	return cmd
}

func newRetryCmd(opts *options) *cobra.Command {
	var sign string

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-fetch the horoscope digest.",
		Long: `Re-run the full horoscope digest request.

The server has no per-category endpoint, so retrying one category always
re-fetches all of them. A cached digest for today comes back immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := opts.poller()
			p.Retry(cmd.Context())

			if sign != "" {
				c, ok := entity.FindConstellation(sign)
				if !ok {
					return fmt.Errorf("invalid sign %q", sign)
				}
				p.Select(c.APIKey)
			}
			selected, ok := p.Selection()
			return render(cmd.OutOrStdout(), opts.output, buildView(p.State(), selected, ok, sign == ""))
		},
	}

	cmd.Flags().StringVar(&sign, "sign", "", "print only this category")
	return cmd
}
