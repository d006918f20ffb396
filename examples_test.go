package strut_test

import (
	"fmt"

	"github.com/chriso345/strut"
)

func Example_readme() {
	// Simulate command line arguments
	argv := []string{"--name", "alice", "--optimizer.lr", "0.01", "--verbose"}

	args := struct {
		Name    string `help:"Experiment name"`
		Verbose bool   `short:"v" help:"Enable verbose output"`

		Optimizer struct {
			Lr    float64 `default:"1e-3" help:"Learning rate"`
			Decay float64 `default:"0" help:"Weight decay"`
		}
	}{}

	err := strut.ParseArgs(&args, argv)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Name: %s\n", args.Name)
	fmt.Printf("Lr: %g\n", args.Optimizer.Lr)
	fmt.Printf("Verbose: %v\n", args.Verbose)
	// Output: Name: alice
	// Lr: 0.01
	// Verbose: true
}

func Example_positional() {
	argv := []string{"in.txt", "out.txt"}

	args := struct {
		Src string `strut:"positional" help:"Source path"`
		Dst string `strut:"positional" help:"Destination path"`
	}{}

	err := strut.ParseArgs(&args, argv)
	if err != nil {
		panic(err)
	}

	fmt.Println(args.Src + " -> " + args.Dst)
	// Output: in.txt -> out.txt
}

func Example_defaults() {
	args := struct {
		Host string
		Port int
	}{Host: "localhost", Port: 8080}

	err := strut.ParseArgs(&args, []string{"--port", "9000"})
	if err != nil {
		panic(err)
	}

	fmt.Printf("%s:%d\n", args.Host, args.Port)
	// Output: localhost:9000
}

type archiveCmd interface{ isArchiveCmd() }

type packCmd struct {
	Out string `default:"archive.tar"`
}

func (packCmd) isArchiveCmd() {}

func (packCmd) CommandHelp() string { return "Create an archive" }

type unpackCmd struct {
	Dir string `default:"."`
}

func (unpackCmd) isArchiveCmd() {}

func (unpackCmd) CommandHelp() string { return "Extract an archive" }

func Example_subcommands() {
	if err := strut.RegisterVariants((*archiveCmd)(nil), packCmd{}, unpackCmd{}); err != nil {
		panic(err)
	}

	args := struct {
		Cmd archiveCmd
	}{}

	err := strut.ParseArgs(&args, []string{"pack-cmd", "--cmd.out", "site.tar"})
	if err != nil {
		panic(err)
	}

	pack := args.Cmd.(packCmd)
	fmt.Println("packing to " + pack.Out)
	// Output: packing to site.tar
}

func Example_call() {
	type serveCfg struct {
		Port int    `default:"8080"`
		Root string `default:"./public"`
	}

	out, err := strut.Call(func(c serveCfg) (string, error) {
		return fmt.Sprintf("serving %s on :%d", c.Root, c.Port), nil
	}, []string{"--port", "3000"})
	if err != nil {
		panic(err)
	}

	fmt.Println(out)
	// Output: serving ./public on :3000
}
