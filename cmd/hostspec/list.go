package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/hostspec/internal/config"
)

type listOptions struct {
	jsonOutput bool
}

type listedSet struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Params       []string `json:"params"`
	Expectations int      `json:"expectations"`
}

type listedSuite struct {
	Name         string `json:"name"`
	TargetHost   string `json:"target_host"`
	Playbook     string `json:"playbook,omitempty"`
	Expectations int    `json:"expectations"`
}

type listing struct {
	Sets   []listedSet   `json:"sets"`
	Suites []listedSuite `json:"suites"`
}

func newListCmd(root *rootFlags) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list <rules.yaml>",
		Short: "List the expectation sets and suites of a rule file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadRules(root, args[0], config.BuildOptions{})
			if err != nil {
				return configFailure("list", err)
			}
			l := buildListing(loaded)
			if opts.jsonOutput {
				return renderListJSON(cmd, l)
			}
			return renderListTable(cmd, l)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func buildListing(loaded *config.Loaded) listing {
	l := listing{Sets: []listedSet{}, Suites: []listedSuite{}}
	for _, name := range loaded.Registry.Names() {
		set, err := loaded.Registry.Lookup(name)
		if err != nil {
			continue
		}
		params := make([]string, 0, len(set.Params))
		for _, p := range set.Params {
			params = append(params, fmt.Sprintf("%s:%s", p.Name, p.Type))
		}
		l.Sets = append(l.Sets, listedSet{
			Name:         set.Name,
			Description:  set.Description,
			Params:       params,
			Expectations: len(set.Templates),
		})
	}
	for _, s := range loaded.Suites {
		l.Suites = append(l.Suites, listedSuite{
			Name:         s.Name,
			TargetHost:   s.Provisioning.Host(),
			Playbook:     s.Provisioning.Playbook,
			Expectations: len(s.Expectations),
		})
	}
	return l
}

func renderListTable(cmd *cobra.Command, l listing) error {
	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

	fmt.Fprintln(writer, "SET\tPARAMS\tEXPECTATIONS")
	for _, s := range l.Sets {
		fmt.Fprintf(writer, "%s\t%s\t%d\n", s.Name, valueOrFallback(strings.Join(s.Params, ", "), "-"), s.Expectations)
	}
	fmt.Fprintln(writer)
	fmt.Fprintln(writer, "SUITE\tHOST\tPLAYBOOK\tEXPECTATIONS")
	for _, s := range l.Suites {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\n", s.Name, s.TargetHost, valueOrFallback(s.Playbook, "-"), s.Expectations)
	}

	return writer.Flush()
}

func renderListJSON(cmd *cobra.Command, l listing) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(l)
}

func valueOrFallback(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
