package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/mansourkira/evoluflow/core/catalog"
	"github.com/mansourkira/evoluflow/core/resource"
)

const msgInvalidData = "données invalides"

func (cli *commandLine) table() *tabwriter.Writer {
	return tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
}

func (cli *commandLine) resources() error {
	w := cli.table()
	fmt.Fprintln(w, "RESSOURCE\tLIBELLÉ\tPRÉFIXE\tRÉFÉRENCES")
	for _, e := range catalog.Entries() {
		variant := "aléatoires"
		if e.Resource.Sequential {
			variant = "séquentielles"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Resource.Name, e.Resource.Label, e.Resource.Prefix, variant)
	}
	return w.Flush()
}

// resourceCommand runs list|get|add|update|delete on the resource named by args[0].
func (cli *commandLine) resourceCommand(ctx context.Context, op string, args []string) error {
	minArgs := map[string]int{"list": 1, "get": 2, "add": 1, "update": 2, "delete": 2}[op]
	if len(args) < minArgs {
		cli.printUsage()
		return errHelp
	}
	entry, ok := catalog.Lookup(args[0])
	if !ok {
		return errors.Errorf("ressource inconnue %q (voir `admin resources`)", args[0])
	}
	if _, err := cli.session(); err != nil {
		return err
	}
	h := entry.Bind(cli.tr, cli.schema)

	switch op {
	case "list":
		return cli.list(ctx, h)
	case "get":
		return cli.get(ctx, h, args[1])
	case "add":
		assignments, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		// the proposed Reference skips the loaded ones
		if _, msg := h.List(ctx); msg != "" {
			return errors.New(msg)
		}
		return cli.report(h, "ajouté", h.Add(ctx, assignments))
	case "update":
		assignments, err := parseAssignments(args[2:])
		if err != nil {
			return err
		}
		if _, msg := h.List(ctx); msg != "" {
			return errors.New(msg)
		}
		return cli.report(h, "modifié", h.Update(ctx, args[1], assignments))
	default:
		if ok, msg := h.Delete(ctx, args[1]); !ok {
			return errors.New(msg)
		}
		fmt.Fprintf(cli.out, "%s %s supprimé\n", entry.Resource.Label, args[1])
		return nil
	}
}

func (cli *commandLine) list(ctx context.Context, h catalog.Handle) error {
	recs, msg := h.List(ctx)
	if msg != "" {
		return errors.New(msg)
	}
	fields := h.Fields()
	w := cli.table()
	labels := make([]string, len(fields))
	for i, f := range fields {
		labels[i] = f.Label
	}
	fmt.Fprintln(w, strings.Join(labels, "\t"))
	for _, rec := range recs {
		fmt.Fprintln(w, strings.Join(resource.Values(rec, fields), "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d enregistrement(s)\n", len(recs))
	return nil
}

func (cli *commandLine) get(ctx context.Context, h catalog.Handle, ref string) error {
	rec, stale, err := h.View(ctx, ref)
	if err != nil {
		return err
	}
	fields := h.Fields()
	values := resource.Values(rec, fields)
	w := cli.table()
	for i, f := range fields {
		fmt.Fprintf(w, "%s\t%s\n", f.Label, values[i])
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if stale {
		fmt.Fprintln(cli.out, "(détail non rafraîchi, copie de la liste affichée)")
	}
	return nil
}

// report prints the outcome of a submitted form, field errors sorted by key.
func (cli *commandLine) report(h catalog.Handle, verb string, out catalog.Outcome) error {
	if out.OK {
		ref := ""
		if rec, ok := out.Record.(resource.Record); ok {
			ref = rec.GetReference()
		}
		fmt.Fprintf(cli.out, "%s %s %s\n", h.Resource().Label, ref, verb)
		return nil
	}
	keys := make([]string, 0, len(out.FieldErrors))
	for k := range out.FieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cli.out, "  %s : %s\n", k, out.FieldErrors[k])
	}
	if out.Notice != "" {
		return errors.New(out.Notice)
	}
	return errors.New(msgInvalidData)
}

// parseAssignments reads key=value arguments.
func parseAssignments(args []string) (map[string]string, error) {
	assignments := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.Errorf("argument %q : key=value attendu", arg)
		}
		assignments[key] = value
	}
	return assignments, nil
}
