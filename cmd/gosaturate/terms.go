package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gitrdm/gosaturate/pkg/egraph"
)

// readTermFiles parses term files: one s-expression term per line,
// blank lines and ;-comments ignored.
func readTermFiles(paths []string) ([]*egraph.Term, error) {
	var terms []*egraph.Term
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" || strings.HasPrefix(text, ";") {
				continue
			}
			term, err := egraph.ParseTerm(text)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("%s:%d: %w", path, line, err)
			}
			terms = append(terms, term)
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("no terms found in %s", strings.Join(paths, ", "))
	}
	return terms, nil
}
