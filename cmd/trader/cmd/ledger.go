package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/intraday/journal"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Query and reconcile the ledger",
	Long: `Query positions, orders and cash balances from the SQLite ledger.

Subcommands:
  positions - List held positions
  orders    - List delivery orders
  cash      - Show the cash balance log
  verify    - Reconcile cash and positions against the order blotter
  export    - Write delivery orders as CSV

Examples:
  trader ledger positions -f trader.yaml
  trader ledger orders --from 2025-03-03 --to 2025-03-07
  trader ledger export -o orders.csv`,
}

var ledgerPositionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List held positions",
	Args:  cobra.NoArgs,
	RunE:  runLedgerPositions,
}

var ledgerOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List delivery orders",
	Args:  cobra.NoArgs,
	RunE:  runLedgerOrders,
}

var ledgerCashCmd = &cobra.Command{
	Use:   "cash",
	Short: "Show the cash balance log",
	Args:  cobra.NoArgs,
	RunE:  runLedgerCash,
}

var ledgerVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Reconcile the ledger",
	Args:  cobra.NoArgs,
	RunE:  runLedgerVerify,
}

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write delivery orders as CSV",
	Args:  cobra.NoArgs,
	RunE:  runLedgerExport,
}

var (
	ledgerFrom   string
	ledgerTo     string
	ledgerOutput string
)

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerPositionsCmd)
	ledgerCmd.AddCommand(ledgerOrdersCmd)
	ledgerCmd.AddCommand(ledgerCashCmd)
	ledgerCmd.AddCommand(ledgerVerifyCmd)
	ledgerCmd.AddCommand(ledgerExportCmd)

	for _, c := range []*cobra.Command{ledgerOrdersCmd, ledgerExportCmd} {
		c.Flags().StringVar(&ledgerFrom, "from", "", "first deal date YYYY-MM-DD")
		c.Flags().StringVar(&ledgerTo, "to", "", "last deal date YYYY-MM-DD")
	}
	ledgerExportCmd.Flags().StringVarP(&ledgerOutput, "output", "o", "", "CSV file (default stdout)")
}

func runLedgerPositions(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ps, err := rt.ledger.HeldPositions(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tQTY\tAVG\tOPENED\tLAST BUY")
	for _, p := range ps {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", p.Code, p.Name, p.Quantity, p.AvgPrice.StringFixed(3), p.OpenedDate, p.LastBuyDate)
	}
	return w.Flush()
}

func runLedgerOrders(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	orders, err := rt.ledger.Orders(cmd.Context(), ledgerFrom, ledgerTo)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTIME\tCODE\tSIDE\tQTY\tPRICE\tAMOUNT\tPOS AFTER\tCASH AFTER\tREASON")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%d\t%s\t%s\n",
			o.DealDate, o.DealTime, o.Code, o.Side, o.Qty, o.Price.StringFixed(2),
			o.Amount.StringFixed(2), o.PositionAfter, o.CashAfter.StringFixed(2), o.Reason)
	}
	return w.Flush()
}

func runLedgerCash(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	bs, err := rt.ledger.Balances(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "AT\tCASH\tREASON")
	for _, b := range bs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.CreatedAt.In(rt.loc).Format("2006-01-02 15:04:05"), b.CashAfter.StringFixed(2), b.Reason)
	}
	return w.Flush()
}

func runLedgerVerify(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	rep, err := rt.ledger.Verify(cmd.Context())
	if err != nil && len(rep.Problems) == 0 {
		return err
	}
	fmt.Printf("Initial cash:  %s\n", rep.InitialCash.StringFixed(2))
	fmt.Printf("Expected cash: %s\n", rep.ExpectedCash.StringFixed(2))
	fmt.Printf("Ledger cash:   %s\n", rep.Cash.StringFixed(2))
	fmt.Printf("Orders:        %d\n", rep.Orders)
	if rep.OK() {
		fmt.Println("✓ Ledger consistent")
		return nil
	}
	fmt.Printf("✗ %d problems:\n  %s\n", len(rep.Problems), strings.Join(rep.Problems, "\n  "))
	return journal.ErrInconsistent
}

func runLedgerExport(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	orders, err := rt.ledger.Orders(cmd.Context(), ledgerFrom, ledgerTo)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if ledgerOutput != "" {
		f, err := os.Create(ledgerOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", ledgerOutput, err)
		}
		defer f.Close()
		out = f
	}
	if err := journal.WriteOrdersCSV(out, orders); err != nil {
		return err
	}
	if ledgerOutput != "" {
		fmt.Printf("✓ Wrote %d orders to %s\n", len(orders), ledgerOutput)
	}
	return nil
}
