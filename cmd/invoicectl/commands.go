package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garyjia/timesheet-invoicing/internal/container"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/workflow"
	"github.com/garyjia/timesheet-invoicing/pkg/utils"
)

func newTemplatesCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect invoice templates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List invoice templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(cmd.Context(), func(c *container.Container) error {
				templates, err := c.Services().Templates.List(cmd.Context())
				if err != nil {
					return err
				}
				return printTemplates(cmd.OutOrStdout(), templates)
			})
		},
	})
	return cmd
}

func newInvoicesCmd(opts *globalOptions) *cobra.Command {
	var (
		statuses []string
		out      string
	)
	filter := func() entity.InvoiceFilter {
		f := entity.InvoiceFilter{}
		for _, s := range statuses {
			f.Statuses = append(f.Statuses, workflow.State(s))
		}
		return f
	}

	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Inspect and export invoices",
	}
	cmd.PersistentFlags().StringSliceVar(&statuses, "status", nil, "only invoices in these statuses (NEW, PENDING, PAID)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List invoices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(cmd.Context(), func(c *container.Container) error {
				invoices, err := c.Services().Invoices.List(cmd.Context(), filter())
				if err != nil {
					return err
				}
				return printInvoices(cmd.OutOrStdout(), invoices)
			})
		},
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Write the invoice list as a spreadsheet",
		Example: `  # Export paid invoices into the current directory
  invoicectl invoices export --status PAID`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withContainer(cmd.Context(), func(c *container.Container) error {
				doc, name, err := c.Services().Invoices.Export(cmd.Context(), filter())
				if err != nil {
					return err
				}
				path := filepath.Join(out, name)
				if err := os.WriteFile(path, doc.Content, 0o644); err != nil {
					return fmt.Errorf("failed to write export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
				return nil
			})
		},
	}
	export.Flags().StringVar(&out, "out", ".", "directory to write the spreadsheet to")

	cmd.AddCommand(list, export)
	return cmd
}

func printTemplates(w io.Writer, templates []*entity.InvoiceTemplate) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCALCULATOR\tRENDERER\tTAX\tNUMBER FORMAT")
	for _, t := range templates {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s%%\t%s\n",
			t.ID, t.Name, t.Calculator, t.Renderer, t.TaxRate, t.NumberFormat)
	}
	return tw.Flush()
}

func printInvoices(w io.Writer, invoices []*entity.Invoice) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tSTATUS\tISSUED\tDUE\tPAID\tTOTAL")
	for _, inv := range invoices {
		paid := "-"
		if inv.PaymentDate != nil {
			paid = inv.PaymentDate.Format(utils.DateLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s %s\n",
			inv.Number,
			inv.Status,
			inv.IssueDate.Format(utils.DateLayout),
			inv.DueDate.Format(utils.DateLayout),
			paid,
			inv.Total,
			inv.Currency)
	}
	return tw.Flush()
}
