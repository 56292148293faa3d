/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
flock-cli - Flock cluster client

Uploads files, trains models and queries predictions against any node
of a flock cluster. Writes sent to a follower are transparently
redirected to the leader.

Usage:

	flock-cli [--host H] [--port P] put <file>
	flock-cli [--host H] [--port P] train <inputs.csv> <outputs.csv>
	flock-cli [--host H] [--port P] train-inline "0,0;0,1;1,0;1,1" "0;1;1;0"
	flock-cli [--host H] [--port P] predict <model-id> 1,0,1
	flock-cli [--host H] [--port P] list
	flock-cli [--host H] [--port P] repl
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"flock/pkg/cli"
	"flock/pkg/client"
)

func main() {
	host := flag.String("host", "127.0.0.1", "Node host")
	port := flag.Int("port", 9000, "Node client port")
	output := flag.String("output", "table", "Output format: table, json, plain")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	c := client.New(fmt.Sprintf("%s:%d", *host, *port), client.DefaultConfig())
	format := cli.ParseOutputFormat(*output)

	var err error
	switch args[0] {
	case "put":
		err = runPut(c, args[1:])
	case "train":
		err = runTrain(c, args[1:])
	case "train-inline":
		err = runTrainInline(c, args[1:])
	case "predict":
		err = runPredict(c, args[1:])
	case "list":
		err = runList(c, format)
	case "repl":
		err = runREPL(c)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: flock-cli [--host H] [--port P] <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  put <file>                        Upload a file")
	fmt.Println("  train <inputs.csv> <outputs.csv>  Train a model from CSV files")
	fmt.Println("  train-inline <inputs> <outputs>   Train from inline data (rows ';', cols ',')")
	fmt.Println("  predict <model-id> <input>        Query a model (input as comma-separated floats)")
	fmt.Println("  list                              List registered models")
	fmt.Println("  repl                              Interactive session")
}

func runPut(c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("put requires a file path")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	name := filepath.Base(args[0])
	if err := c.Put(name, data); err != nil {
		return err
	}
	cli.PrintSuccess("Uploaded %s (%d bytes)", name, len(data))
	return nil
}

func runTrain(c *client.Client, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("train requires <inputs.csv> <outputs.csv>")
	}
	inputs, err := loadCSV(args[0])
	if err != nil {
		return err
	}
	outputs, err := loadCSV(args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Training with %d samples...\n", len(inputs))
	return train(c, inputs, outputs)
}

func runTrainInline(c *client.Client, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("train-inline requires <inputs> <outputs>")
	}
	inputs, err := parseInline(args[0])
	if err != nil {
		return err
	}
	outputs, err := parseInline(args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Training with %d samples (inline)...\n", len(inputs))
	return train(c, inputs, outputs)
}

func train(c *client.Client, inputs, outputs [][]float64) error {
	modelID, err := c.Train(inputs, outputs)
	if err != nil {
		return err
	}
	cli.PrintSuccess("Training complete")
	cli.KeyValue("Model ID", cli.Highlight(modelID), 10)
	return nil
}

func runPredict(c *client.Client, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("predict requires <model-id> <input>")
	}
	input, err := parseFloats(args[1])
	if err != nil {
		return err
	}
	output, err := c.Predict(args[0], input)
	if err != nil {
		return err
	}
	fmt.Printf("Prediction: %v\n", formatFloats(output))
	return nil
}

func runList(c *client.Client, format cli.OutputFormat) error {
	models, err := c.ListModels()
	if err != nil {
		return err
	}
	table := cli.NewTable("MODEL ID")
	table.SetFormat(format)
	for _, id := range models {
		table.AddRow(id)
	}
	table.Print()
	return nil
}

// runREPL drives an interactive session with history and completion.
func runREPL(c *client.Client) error {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("put"),
		readline.PcItem("train-inline"),
		readline.PcItem("predict"),
		readline.PcItem("list"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          cli.Info("flock") + "> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".flock_history"),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		var cmdErr error
		switch fields[0] {
		case "exit", "quit":
			return nil
		case "help":
			usage()
		case "put":
			cmdErr = runPut(c, fields[1:])
		case "train-inline":
			cmdErr = runTrainInline(c, fields[1:])
		case "predict":
			cmdErr = runPredict(c, fields[1:])
		case "list":
			cmdErr = runList(c, cli.FormatTable)
		default:
			cmdErr = fmt.Errorf("unknown command %q (try help)", fields[0])
		}
		if cmdErr != nil {
			cli.PrintError("%v", cmdErr)
		}
	}
}

// loadCSV reads a CSV file into rows of floats.
func loadCSV(path string) ([][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows [][]float64
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		row, err := parseFloats(line)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseInline parses "0,0;0,1;1,0" into [[0,0],[0,1],[1,0]].
func parseInline(s string) ([][]float64, error) {
	var rows [][]float64
	for _, part := range strings.Split(s, ";") {
		row, err := parseFloats(part)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, field := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", field)
		}
		out = append(out, v)
	}
	return out, nil
}

func formatFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', 4, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
