package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"marketpay-backend/internal/domain"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var email, business string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the demo seller if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			seller, created, err := a.sellerService().Ensure(cmd.Context(), email, business)
			if err != nil {
				return fmt.Errorf("seed seller: %w", err)
			}
			verb := "exists"
			if created {
				verb = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seller %s: %s (%s)\n", verb, seller.ID, seller.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "demo@example.com", "seller email")
	cmd.Flags().StringVar(&business, "business", "Demo Business", "seller business name")
	return cmd
}

func newOrderCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Inspect orders",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <orderId>",
		Short: "Print an order with its seller payment setup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			o, err := a.orderService(nil).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printOrder(cmd.OutOrStdout(), o)
			return nil
		},
	})
	return cmd
}

func printOrder(w io.Writer, o *domain.Order) {
	fmt.Fprintf(w, "order:    %s\n", o.ID)
	fmt.Fprintf(w, "status:   %s / payment %s / fulfillment %s\n", o.Status, o.PaymentStatus, o.FulfillmentStatus)
	fmt.Fprintf(w, "buyer:    %s\n", o.BuyerEmail)
	fmt.Fprintf(w, "total:    %s (subtotal %s, shipping %s, tax %s)\n",
		domain.FormatMinor(o.TotalAmount), domain.FormatMinor(o.Subtotal),
		domain.FormatMinor(o.ShippingAmount), domain.FormatMinor(o.TaxAmount))
	for _, it := range o.Items {
		fmt.Fprintf(w, "  - %d x %s @ %s\n", it.Quantity, it.ProductName, domain.FormatMinor(it.UnitPrice))
	}
	if s := o.Seller; s != nil {
		fmt.Fprintf(w, "seller:   %s (%s)\n", s.ID, s.Email)
		fmt.Fprintf(w, "  account:    %s\n", orNone(s.AccountID()))
		fmt.Fprintf(w, "  onboarded:  %t\n", s.OnboardingCompleted)
		fmt.Fprintf(w, "  status:     %s\n", s.AccountStatus)
		fmt.Fprintf(w, "  can charge: %t\n", s.ReadyForPayments())
	}
	for _, t := range o.Transactions {
		fmt.Fprintf(w, "transaction %s: %s %s fee %s\n", t.PaymentIntentID, t.Status,
			domain.FormatMinor(t.AmountTotal), domain.FormatMinor(t.ApplicationFeeAmount))
	}
}

func newSellerCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seller",
		Short: "Inspect sellers",
	}
	var sync bool
	status := &cobra.Command{
		Use:   "status <sellerId>",
		Short: "Print a seller's payment account status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			out := map[string]any{}
			if sync {
				if err := a.withProvider(); err != nil {
					return err
				}
				fees, err := a.fees()
				if err != nil {
					return err
				}
				acct, err := a.paymentService(fees).SyncAccountStatus(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out["provider"] = acct
			}
			seller, err := a.sellerService().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out["seller"] = seller
			b, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	status.Flags().BoolVar(&sync, "sync", false, "pull live status from Stripe and store it")
	cmd.AddCommand(status)
	return cmd
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
