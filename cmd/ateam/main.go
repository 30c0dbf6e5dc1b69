package main

import (
	"fmt"
	"os"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch command := os.Args[1]; command {
	case "run":
		err = handleRun(os.Args[2:])
	case "serve":
		err = handleServe(os.Args[2:])
	case "agents":
		err = handleAgents(os.Args[2:])
	case "version":
		handleVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("ateam - run teams of LLM agents %s\n\n", version)
	fmt.Println("Usage:")
	fmt.Println("  ateam run [--config file] [--agent name] [--state] [--json] <message>")
	fmt.Println("  ateam serve [--config file] [--addr :8080] [--cors]")
	fmt.Println("  ateam agents [--config file]    List configured agents")
	fmt.Println("  ateam version                   Show version information")
	fmt.Println("  ateam help                      Show this help message")
	fmt.Println()
	fmt.Println("The config file may also be given with ATEAM_CONFIG; provider keys are read")
	fmt.Println("from OPENAI_API_KEY, GEMINI_API_KEY and ANTHROPIC_API_KEY.")
}

func handleVersion() {
	fmt.Printf("ateam version %s\n", version)
}
