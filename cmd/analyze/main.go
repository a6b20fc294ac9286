// Command analyze runs the indicator engine over a series of closing prices.
//
// Prices are read from a file or stdin, either one per line or as a JSON
// array (optionally {"prices":[...]}), oldest first:
//
//	analyze -file closes.txt
//	echo '[101.5, 102, 99.8]' | analyze
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mohamedkhairy/nse-analytics/pkg/indicator"
	"github.com/tidwall/gjson"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "read prices from file instead of stdin")
	compact := fs.Bool("compact", false, "print compact JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	input := stdin
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open input: %v\n", err)
			return 1
		}
		defer f.Close()
		input = f
	}

	data, err := io.ReadAll(input)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read input: %v\n", err)
		return 1
	}

	prices, err := parsePrices(data)
	if err != nil {
		fmt.Fprintf(stderr, "Invalid input: %v\n", err)
		return 1
	}

	analysis, err := indicator.Analyze(prices)
	if err != nil {
		fmt.Fprintf(stderr, "Analysis failed: %v\n", err)
		return 1
	}

	var out []byte
	if *compact {
		out, err = json.Marshal(analysis)
	} else {
		out, err = json.MarshalIndent(analysis, "", "  ")
	}
	if err != nil {
		fmt.Fprintf(stderr, "Failed to encode analysis: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(out))
	return 0
}

// parsePrices accepts a JSON array, a {"prices":[...]} object, or one
// price per line. Blank lines and lines starting with # are skipped.
func parsePrices(data []byte) ([]float64, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return parseJSON(trimmed)
	}
	return parseLines(trimmed)
}

func parseJSON(data []byte) ([]float64, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("malformed JSON")
	}
	field := gjson.ParseBytes(data)
	if field.IsObject() {
		field = field.Get("prices")
	}
	if !field.IsArray() {
		return nil, errors.New("expected a JSON array of prices")
	}

	elements := field.Array()
	prices := make([]float64, len(elements))
	for i, el := range elements {
		if el.Type != gjson.Number {
			return nil, &indicator.InvalidInputError{
				Index:  i,
				Field:  "price",
				Reason: fmt.Sprintf("not a number: %s", el.Raw),
			}
		}
		prices[i] = el.Float()
	}
	return prices, nil
}

func parseLines(data []byte) ([]float64, error) {
	var prices []float64
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		p, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &indicator.InvalidInputError{
				Index:  len(prices),
				Field:  "price",
				Reason: fmt.Sprintf("line %d: not a number: %q", line, text),
			}
		}
		prices = append(prices, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return prices, nil
}
