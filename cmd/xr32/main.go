package main

import (
	"flag"
	"log"
	"os"

	"github.com/notbonzo-com/XR-32/asm"
	"github.com/notbonzo-com/XR-32/machine"
)

func main() {
	var compile string
	var memSize uint
	var load uint
	var verbose bool

	flag.StringVar(&compile, "c", "", "assembly source file to assemble and run")
	flag.UintVar(&memSize, "m", 1<<20, "physical memory size, in bytes")
	flag.UintVar(&load, "l", 0, "physical address to load the assembled image at")
	flag.BoolVar(&verbose, "v", false, "verbose mode: trace every instruction")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: unknown arguments: %v", os.Args[0], flag.Args())
	}

	if compile == "" {
		log.Fatalf("%v: -c is required", os.Args[0])
	}

	source, err := os.ReadFile(compile)
	if err != nil {
		log.Fatalf("%v: %v", compile, err)
	}

	a := asm.New()
	a.Verbose = verbose
	prog, err := a.Assemble(string(source))
	if err != nil {
		log.Fatalf("%v: %v", compile, err)
	}

	mach := machine.NewMachine(uint32(memSize))
	if err := mach.LoadImage(uint32(load), prog.Binary()); err != nil {
		log.Fatalf("%v: %v", compile, err)
	}
	if err := mach.IdentityMap(); err != nil {
		log.Fatalf("%v: %v", compile, err)
	}
	mach.CPU.Regs.I0 = uint32(load)
	mach.Verbose = verbose

	if err := mach.Run(); err != nil {
		log.Fatalf("%v: %v", compile, err)
	}
}
