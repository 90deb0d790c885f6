package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/gwillem/rover/pkg/brainstore"
)

type ExportsCommand struct {
	Database string `long:"db" description:"Export database (overrides config)"`
	Limit    int    `long:"limit" short:"n" default:"20" description:"Number of exports to list"`
}

func (c *ExportsCommand) Execute(args []string) error {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}
	db := cfg.Export.Database
	if c.Database != "" {
		db = c.Database
	}

	ctx := context.Background()
	store := brainstore.NewSQLiteStore(db)
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("open %s: %w", db, err)
	}
	defer store.Close()

	exports, err := store.ListExports(ctx, c.Limit)
	if err != nil {
		return fmt.Errorf("list exports: %w", err)
	}
	if len(exports) == 0 {
		fmt.Printf("No weight exports in %s yet. Press 'l' while driving to save one.\n", db)
		return nil
	}

	rows := make([][]string, 0, len(exports))
	for _, e := range exports {
		rows = append(rows, []string{
			e.ID,
			humanize.Time(e.CreatedAt),
			fmt.Sprint(e.Neurons),
			fmt.Sprint(e.Inputs),
			humanize.Bytes(uint64(e.Bytes)),
		})
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	idStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "Saved", "Neurons", "Inputs", "Size").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return idStyle
			default:
				return cellStyle
			}
		})

	fmt.Println(t.Render())
	return nil
}
