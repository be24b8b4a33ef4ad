package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/theirongolddev/ptab/internal/cli"

	"github.com/spf13/cobra"
)

var flagDepartment string

var issuerCmd = &cobra.Command{
	Use:   "issuer",
	Short: "Manage the issuers requests are made for",
}

var issuerAddCmd = &cobra.Command{
	Use:   "add NAME_REF",
	Short: "Add an active issuer",
	Args:  cobra.ExactArgs(1),
	RunE:  runIssuerAdd,
}

var issuerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issuers",
	RunE:  runIssuerList,
}

var issuerDeactivateCmd = &cobra.Command{
	Use:   "deactivate ISSUER_ID",
	Short: "Deactivate an issuer; existing requests are kept",
	Args:  cobra.ExactArgs(1),
	RunE:  runIssuerDeactivate,
}

func init() {
	issuerAddCmd.Flags().StringVar(&flagDepartment, "department", "", "Department")
	issuerListCmd.Flags().BoolVarP(&flagShowAll, "all", "a", false, "Include inactive issuers")

	issuerCmd.AddCommand(issuerAddCmd, issuerListCmd, issuerDeactivateCmd)
	rootCmd.AddCommand(issuerCmd)
}

func runIssuerAdd(_ *cobra.Command, args []string) error {
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	is, err := svc.AddIssuer(context.Background(), args[0], flagDepartment)
	if err != nil {
		return err
	}
	fmt.Printf("  Added issuer #%d (%s)\n", is.ID, is.NameRef)
	return nil
}

func runIssuerList(_ *cobra.Command, _ []string) error {
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	issuers, err := svc.ListIssuers(context.Background(), !flagShowAll)
	if err != nil {
		return err
	}
	if len(issuers) == 0 {
		fmt.Println("\n  No issuers. Add one with `ptab issuer add NAME_REF`.")
		return nil
	}

	rows := make([][]string, len(issuers))
	for i, is := range issuers {
		rows[i] = []string{"#" + strconv.FormatInt(is.ID, 10), is.NameRef, is.Department, is.Status, cli.FormatDate(is.CreatedAt)}
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    "Issuers",
		Headers:  []string{"Id", "Reference", "Department", "Status", "Created"},
		Rows:     rows,
		LeftCols: 5,
	}))
	return nil
}

func runIssuerDeactivate(_ *cobra.Command, args []string) error {
	id, err := parseID(args[0], "issuer")
	if err != nil {
		return err
	}
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := svc.DeactivateIssuer(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("  Deactivated issuer #%d\n", id)
	return nil
}
