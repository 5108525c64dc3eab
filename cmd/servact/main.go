// Command servact audits IDL documents and inspects their REST bindings.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/servact/servact"
)

type CLI struct {
	Check  CheckCmd  `cmd:"" help:"Audit an IDL document and report every violation."`
	Routes RoutesCmd `cmd:"" help:"Print the route table of an audited IDL document."`
}

type CheckCmd struct {
	File string `arg:"" help:"IDL document to audit." type:"existingfile"`
}

func (c *CheckCmd) Run() error {
	def, err := audit(c.File)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s audited cleanly (%d methods, %d types)\n",
		c.File, def.Name, len(def.Methods), len(def.Types))
	return nil
}

type RoutesCmd struct {
	File string `arg:"" help:"IDL document to audit." type:"existingfile"`
}

func (c *RoutesCmd) Run() error {
	def, err := audit(c.File)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, m := range def.Methods {
		fmt.Fprintf(w, "%s\t%s\t%s.%s\n", m.Verb, m.Path, def.Name, m.Name)
	}
	return w.Flush()
}

func audit(file string) (*servact.ServiceDefinition, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return servact.Audit(string(src))
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("servact"),
		kong.Description("Audit IDL service definitions and inspect their REST bindings."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
